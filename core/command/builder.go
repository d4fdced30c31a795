package command

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/josephlewis42/minishell/core/token"
)

var (
	// ErrTooManyCommands is returned when a line holds more commands than allowed.
	ErrTooManyCommands = errors.New("too many commands")
	// ErrTooManyArgs is returned when a command has more arguments than allowed.
	ErrTooManyArgs = errors.New("too many arguments")
	// ErrMultipleRedirects is returned for a second redirection on one command.
	ErrMultipleRedirects = errors.New("only one redirection is allowed per command")
	// ErrMissingRedirectTarget is returned when a redirection has no file name.
	ErrMissingRedirectTarget = errors.New("redirection without a file name")
	// ErrBadDescriptor is returned for a descriptor number that doesn't fit.
	ErrBadDescriptor = errors.New("bad file descriptor")
	// ErrDanglingPipe is returned when the line ends with |.
	ErrDanglingPipe = errors.New("pipe without a following command")
)

// Limits bounds the size of a Sequence. Zero values disable a bound.
type Limits struct {
	MaxCommands int
	MaxArgs     int
}

// DefaultLimits matches the classic fixed-size command table.
var DefaultLimits = Limits{
	MaxCommands: 32,
	MaxArgs:     32,
}

// UnknownSeparatorError reports a token found where | or ; was expected.
type UnknownSeparatorError struct {
	Token string
}

func (e *UnknownSeparatorError) Error() string {
	return fmt.Sprintf("Unknown command: %s", e.Token)
}

// SyntaxError wraps a build failure with the token position it occurred at.
type SyntaxError struct {
	Pos int
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("token %d: %v", e.Pos, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

type state int

const (
	stateStart state = iota
	statePath
	stateRedirect
	stateArg
	stateSeparator
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case statePath:
		return "path"
	case stateRedirect:
		return "redirect"
	case stateArg:
		return "arg"
	case stateSeparator:
		return "separator"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// builder is the state machine that consumes one line.
type builder struct {
	line   *token.Line
	limits Limits

	pos   int
	state state
	seq   *Sequence
}

// Build turns a line of tokens into a Sequence.
func Build(line *token.Line, limits Limits) (*Sequence, error) {
	b := &builder{
		line:   line,
		limits: limits,
		state:  stateStart,
		seq:    &Sequence{},
	}
	return b.run()
}

func (b *builder) run() (*Sequence, error) {
	for b.pos < b.line.Len() {
		if err := b.step(); err != nil {
			return nil, &SyntaxError{Pos: b.pos, Err: err}
		}
	}

	if n := len(b.seq.Commands); n > 0 && b.seq.Commands[n-1].FeedsNext {
		return nil, &SyntaxError{Pos: b.pos, Err: ErrDanglingPipe}
	}
	return b.seq, nil
}

// current returns the command being filled.
func (b *builder) current() *Command {
	return &b.seq.Commands[len(b.seq.Commands)-1]
}

// next decides the state for the token at b.pos by looking one or two tokens
// ahead.
func (b *builder) next() state {
	first, ok := b.line.At(b.pos)
	if !ok {
		return stateSeparator
	}
	second, _ := b.line.At(b.pos + 1)

	switch {
	case first.IsRedirect():
		return stateRedirect
	case first.Class() == token.Number && second.IsRedirect():
		return stateRedirect
	case first.IsSeparator():
		return stateSeparator
	default:
		return stateArg
	}
}

// step consumes the token(s) for a single transition.
func (b *builder) step() error {
	tok, _ := b.line.At(b.pos)

	switch b.state {
	case stateStart:
		b.state = statePath
		return nil

	case statePath:
		if b.limits.MaxCommands > 0 && len(b.seq.Commands) >= b.limits.MaxCommands {
			return fmt.Errorf("%w: more than %d", ErrTooManyCommands, b.limits.MaxCommands)
		}
		b.seq.Commands = append(b.seq.Commands, Command{
			Path: tok.Text,
			Args: []string{tok.Text},
		})
		b.pos++
		b.state = b.next()
		return nil

	case stateArg:
		cmd := b.current()
		if b.limits.MaxArgs > 0 && len(cmd.Args) >= b.limits.MaxArgs {
			return fmt.Errorf("%w: %s has more than %d", ErrTooManyArgs, cmd.Path, b.limits.MaxArgs)
		}
		cmd.Args = append(cmd.Args, tok.Text)
		b.pos++
		b.state = b.next()
		return nil

	case stateRedirect:
		redirect, err := b.redirect()
		if err != nil {
			return err
		}
		cmd := b.current()
		if cmd.Redirect != nil {
			return ErrMultipleRedirects
		}
		cmd.Redirect = redirect
		b.state = b.next()
		return nil

	case stateSeparator:
		switch tok.Class() {
		case token.Semicolon:
			b.current().FeedsNext = false
		case token.Pipe:
			b.current().FeedsNext = true
		default:
			b.seq.Warnings = append(b.seq.Warnings, &UnknownSeparatorError{Token: tok.Text})
		}
		b.pos++
		b.state = stateStart
		return nil

	default:
		return fmt.Errorf("invalid builder state %v", b.state)
	}
}

// redirect consumes [N] OP FILE starting at b.pos.
func (b *builder) redirect() (*Redirect, error) {
	out := &Redirect{FD: DefaultFD}

	tok, _ := b.line.At(b.pos)
	if tok.Class() == token.Number {
		fd, err := strconv.Atoi(tok.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadDescriptor, tok.Text)
		}
		out.FD = fd
		b.pos++
		tok, _ = b.line.At(b.pos)
	}

	mode, err := ParseMode(tok.Text)
	if err != nil {
		return nil, err
	}
	out.Mode = mode
	b.pos++

	filename, ok := b.line.At(b.pos)
	if !ok || !filename.IsOperand() {
		return nil, fmt.Errorf("%w after %s", ErrMissingRedirectTarget, tok.Text)
	}
	out.Filename = filename.Text
	b.pos++

	return out, nil
}
