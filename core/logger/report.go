package logger

import (
	"encoding/json"
	"io"
	"path/filepath"
	"sort"
	"strconv"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// NewReport creates an empty Report.
func NewReport() *Report {
	return &Report{
		Step: StepReport{
			ExitCodes: NewPathCounter("command", "exit_code"),
		},
		ResourceError: ResourceErrorReport{
			Errors: NewPathCounter("op", "error"),
		},
	}
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	Sessions       StrCounter `json:"sessions,omitempty"`
	InvalidEntries int        `json:"invalid_entries,omitempty"`

	Cycle            CycleReport            `json:"cycle_report"`
	Step             StepReport             `json:"step_report"`
	UnknownSeparator UnknownSeparatorReport `json:"unknown_separator_report"`
	ParseError       ParseErrorReport       `json:"parse_error_report"`
	ResourceError    ResourceErrorReport    `json:"resource_error_report"`
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++
	if le.SessionID != "" {
		r.Sessions.Increment(le.SessionID)
	}

	switch event := le.GetLogType().(type) {
	case *Cycle:
		r.Cycle.update(event)
	case *Step:
		r.Step.update(event)
	case *UnknownSeparator:
		r.UnknownSeparator.update(event)
	case *ParseError:
		r.ParseError.update(event)
	case *ResourceError:
		r.ResourceError.update(event)
	default:
		r.InvalidEntries++
	}
}

type CycleReport struct {
	Lines      int `json:"lines"`
	EmptyLines int `json:"empty_lines"`
	Tokens     int `json:"tokens"`
}

func (r *CycleReport) update(c *Cycle) {
	r.Lines++
	if c.Tokens == 0 {
		r.EmptyLines++
	}
	r.Tokens += c.Tokens
}

type StepReport struct {
	Steps int `json:"steps"`
	// Number of steps with more than one command.
	Pipelines int `json:"pipelines"`
	// Longest pipe-chain seen.
	LongestChain int `json:"longest_chain"`
	// Base names of the programs run and their counts.
	CommandNames StrCounter `json:"command_names"`
	// Exit codes grouped by program.
	ExitCodes *PathCounter `json:"exit_codes"`
}

func (r *StepReport) update(s *Step) {
	r.Steps++
	if len(s.Commands) > 1 {
		r.Pipelines++
	}
	if len(s.Commands) > r.LongestChain {
		r.LongestChain = len(s.Commands)
	}

	for i, argv := range s.Commands {
		if len(argv) == 0 {
			continue
		}
		name := filepath.Base(argv[0])
		r.CommandNames.Increment(name)

		if r.ExitCodes != nil && i < len(s.ExitCodes) {
			r.ExitCodes.Increment(name, strconv.Itoa(s.ExitCodes[i]))
		}
	}
}

type UnknownSeparatorReport struct {
	Tokens StrCounter `json:"tokens"`
}

func (r *UnknownSeparatorReport) update(u *UnknownSeparator) {
	r.Tokens.Increment(u.Token)
}

type ParseErrorReport struct {
	Errors StrCounter `json:"errors"`
}

func (r *ParseErrorReport) update(p *ParseError) {
	r.Errors.Increment(p.Error)
}

type ResourceErrorReport struct {
	Errors *PathCounter `json:"errors"`
}

func (r *ResourceErrorReport) update(re *ResourceError) {
	if r.Errors != nil {
		r.Errors.Increment(re.Op, re.Error)
	}
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Get returns the count for the key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// Len returns the number of distinct keys.
func (s *StrCounter) Len() int {
	return len(s.internal)
}

// MarshalJSON implements custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings, one per column.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Get returns the count for the tuple.
func (ctr *PathCounter) Get(vals ...string) int {
	return ctr.internal[toKey(vals...)]
}

// PathCount is a single row of a PathCounter.
type PathCount struct {
	Count  int               `json:"count"`
	Fields map[string]string `json:"event"`
	Path   string            `json:"-"`
}

// Rows returns the counts, largest first.
func (ctr *PathCounter) Rows() []PathCount {
	var out []PathCount
	for k, v := range ctr.internal {
		count := PathCount{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// MarshalJSON implements custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(ctr.Rows())
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
