package logger

// LogEntry is a single line of the event log. Exactly one event field is set.
type LogEntry struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`

	Cycle            *Cycle            `json:"cycle,omitempty"`
	Step             *Step             `json:"step,omitempty"`
	UnknownSeparator *UnknownSeparator `json:"unknown_separator,omitempty"`
	ParseError       *ParseError       `json:"parse_error,omitempty"`
	ResourceError    *ResourceError    `json:"resource_error,omitempty"`
}

// LogType is implemented by every event that can be recorded.
type LogType interface {
	attach(le *LogEntry)
}

// GetLogType returns the event held by the entry or nil if none is set.
func (le *LogEntry) GetLogType() LogType {
	switch {
	case le.Cycle != nil:
		return le.Cycle
	case le.Step != nil:
		return le.Step
	case le.UnknownSeparator != nil:
		return le.UnknownSeparator
	case le.ParseError != nil:
		return le.ParseError
	case le.ResourceError != nil:
		return le.ResourceError
	default:
		return nil
	}
}

// Cycle is logged once per line read by the shell.
type Cycle struct {
	Line   string `json:"line"`
	Tokens int    `json:"tokens"`
	EOF    bool   `json:"eof,omitempty"`
}

func (e *Cycle) attach(le *LogEntry) { le.Cycle = e }

// Step is logged after a standalone command or pipe-chain finishes.
type Step struct {
	Commands  [][]string `json:"commands"`
	ExitCodes []int      `json:"exit_codes"`
}

func (e *Step) attach(le *LogEntry) { le.Step = e }

type UnknownSeparator struct {
	Token string `json:"token"`
}

func (e *UnknownSeparator) attach(le *LogEntry) { le.UnknownSeparator = e }

// ParseError is logged when a line is rejected by the tokenizer or builder.
type ParseError struct {
	Line  string `json:"line"`
	Error string `json:"error"`
}

func (e *ParseError) attach(le *LogEntry) { le.ParseError = e }

// ResourceError is logged when the shell can't create pipes or processes.
type ResourceError struct {
	Op    string `json:"op"`
	Error string `json:"error"`
}

func (e *ResourceError) attach(le *LogEntry) { le.ResourceError = e }
