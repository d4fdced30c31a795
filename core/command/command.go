// Package command turns a tokenized line into Command descriptors joined by
// pipe and sequence operators.
package command

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultFD marks a redirect without an explicit descriptor.
const DefaultFD = -1

// ErrUnknownMode is returned for a redirection operator that isn't <, > or >>.
var ErrUnknownMode = errors.New("unknown redirection")

// Mode is how a redirection opens its file.
type Mode int

const (
	ModeRead Mode = iota
	ModeTruncate
	ModeAppend
)

// ParseMode maps a redirection operator to its Mode.
func ParseMode(op string) (Mode, error) {
	switch op {
	case "<":
		return ModeRead, nil
	case ">":
		return ModeTruncate, nil
	case ">>":
		return ModeAppend, nil
	default:
		return 0, fmt.Errorf("%w %s", ErrUnknownMode, op)
	}
}

// Operator returns the token that produces the mode.
func (m Mode) Operator() string {
	switch m {
	case ModeRead:
		return "<"
	case ModeTruncate:
		return ">"
	case ModeAppend:
		return ">>"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeTruncate:
		return "truncate"
	case ModeAppend:
		return "append"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Redirect rebinds one descriptor of a command to a file.
type Redirect struct {
	// FD is the descriptor given before the operator, or DefaultFD.
	FD       int
	Mode     Mode
	Filename string
}

// Target is the descriptor the redirect replaces: FD if one was given,
// otherwise standard input for reads and standard output for writes.
func (r *Redirect) Target() int {
	if r.FD != DefaultFD {
		return r.FD
	}
	if r.Mode == ModeRead {
		return 0
	}
	return 1
}

func (r *Redirect) String() string {
	fd := ""
	if r.FD != DefaultFD {
		fd = fmt.Sprint(r.FD)
	}
	return fmt.Sprintf("%s%s%s", fd, r.Mode.Operator(), r.Filename)
}

// Command describes one program invocation.
type Command struct {
	Path string
	// Args holds the full argument vector, Args[0] is Path.
	Args     []string
	Redirect *Redirect
	// FeedsNext connects standard output to the next command's standard input.
	FeedsNext bool
}

func (c *Command) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(c.Args, " "))
	if c.Redirect != nil {
		sb.WriteString(" ")
		sb.WriteString(c.Redirect.String())
	}
	if c.FeedsNext {
		sb.WriteString(" |")
	}
	return sb.String()
}

// Sequence is every command built from one line, in order.
type Sequence struct {
	Commands []Command

	// Warnings holds non-fatal problems found while building, such as
	// unrecognized separators.
	Warnings []error
}

// Len returns the number of commands.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Commands)
}

func (s *Sequence) String() string {
	var sb strings.Builder
	for i := range s.Commands {
		cmd := &s.Commands[i]
		sb.WriteString(cmd.String())
		if !cmd.FeedsNext && i < len(s.Commands)-1 {
			sb.WriteString(" ;")
		}
		if i < len(s.Commands)-1 {
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

// ChainLen returns how many commands starting at i belong to the same
// sequence step: 1 for a standalone command, the whole pipe-chain otherwise.
func (s *Sequence) ChainLen(i int) int {
	n := 0
	for j := i; j < len(s.Commands); j++ {
		n++
		if !s.Commands[j].FeedsNext {
			break
		}
	}
	return n
}
