// Package commands holds the interactive command interpreter that drives the
// tokenizer, builder and executor.
package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/josephlewis42/minishell/core/command"
	"github.com/josephlewis42/minishell/core/config"
	"github.com/josephlewis42/minishell/core/executor"
	"github.com/josephlewis42/minishell/core/logger"
	"github.com/josephlewis42/minishell/core/token"
)

const (
	diagPrefix = "minishell: "

	// ExitSyntaxError is the status of a line that couldn't be parsed.
	ExitSyntaxError = 2
)

// Shell reads lines, turns them into command sequences and runs them.
type Shell struct {
	Config   *config.Configuration
	Executor *executor.Executor
	Log      *logger.SessionLogger

	stdout io.Writer
	stderr io.Writer
	prompt string
	lines  lineSource

	lastRet int
}

// cycle holds everything produced while handling a single line.
type cycle struct {
	line *token.Line
	seq  *command.Sequence
}

func (c *cycle) text() string {
	return strings.Join(c.line.Texts(), " ")
}

// NewShell creates a shell that reads from the executor's standard input.
// Line editing is used when both standard input and output are terminals and
// the configuration allows it.
func NewShell(cfg *config.Configuration, ex *executor.Executor, log *logger.SessionLogger) (*Shell, error) {
	s := &Shell{
		Config:   cfg,
		Executor: ex,
		Log:      log,
		stdout:   ex.Stdout,
		stderr:   ex.Stderr,
	}
	s.prompt = s.colorize(cfg.Prompt)

	limits := cfg.Limits.TokenLimits()
	if cfg.Readline && isTerminal(ex.Stdin) && isTerminal(ex.Stdout) {
		lines, err := newEditedLines(ex.Stdin, ex.Stdout, ex.Stderr, limits)
		if err != nil {
			return nil, err
		}
		s.lines = lines
	} else {
		s.lines = &plainLines{
			prompt:    ex.Stdout,
			tokenizer: token.NewTokenizer(ex.Stdin, limits),
		}
	}

	ex.OnStep = s.logStep
	return s, nil
}

func (s *Shell) colorize(prompt string) string {
	c := color.New(color.FgGreen, color.Bold)
	switch s.Config.Color {
	case config.ColorAlways:
		c.EnableColor()
	case config.ColorNever:
		c.DisableColor()
	default:
		if isTerminal(s.Executor.Stdout) {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return c.Sprint(prompt)
}

// Close releases the line editor, if any.
func (s *Shell) Close() error {
	return s.lines.Close()
}

// Run reads and executes lines until the input ends. It returns the process
// exit status.
func (s *Shell) Run() int {
	for {
		line, err := s.lines.Next(s.prompt)
		switch {
		case errors.Is(err, token.ErrTooManyTokens), errors.Is(err, token.ErrTokenTooLong):
			s.rejectLine(&cycle{line: line}, err)
			if line.EOF {
				fmt.Fprintln(s.stdout)
				return 0
			}
			continue
		case err != nil:
			fmt.Fprintf(s.stderr, "%s%v\n", diagPrefix, err)
			return 1
		}

		c := &cycle{line: line}
		if line.EOF {
			fmt.Fprintln(s.stdout)
			if line.Len() == 0 {
				return 0
			}
		}

		if err := s.execute(c); err != nil {
			return 1
		}

		if line.EOF {
			return 0
		}
	}
}

// RunLine executes the lines in text without prompting and returns the exit
// status of the last stage run.
func (s *Shell) RunLine(text string) int {
	tokenizer := token.NewTokenizer(strings.NewReader(text), s.Config.Limits.TokenLimits())
	for {
		line, err := tokenizer.Next()
		switch {
		case errors.Is(err, token.ErrTooManyTokens), errors.Is(err, token.ErrTokenTooLong):
			s.rejectLine(&cycle{line: line}, err)
		case err != nil:
			fmt.Fprintf(s.stderr, "%s%v\n", diagPrefix, err)
			return 1
		default:
			if err := s.execute(&cycle{line: line}); err != nil {
				return 1
			}
		}

		if line.EOF {
			return s.lastRet
		}
	}
}

// execute builds and runs one line. Only a resource failure is returned,
// everything else is reported and the shell carries on.
func (s *Shell) execute(c *cycle) error {
	s.Log.Record(&logger.Cycle{Line: c.text(), Tokens: c.line.Len(), EOF: c.line.EOF})
	if c.line.Len() == 0 {
		return nil
	}

	seq, err := command.Build(c.line, s.Config.Limits.CommandLimits())
	if err != nil {
		s.rejectLine(c, err)
		return nil
	}
	c.seq = seq

	for _, warning := range seq.Warnings {
		fmt.Fprintln(s.stderr, warning)
		var sepErr *command.UnknownSeparatorError
		if errors.As(warning, &sepErr) {
			s.Log.Record(&logger.UnknownSeparator{Token: sepErr.Token})
		}
	}

	if _, err := s.Executor.Run(c.seq); err != nil {
		fmt.Fprintf(s.stderr, "%s%v\n", diagPrefix, err)

		var resErr *executor.ResourceError
		if errors.As(err, &resErr) {
			s.Log.Record(&logger.ResourceError{Op: resErr.Op, Error: rootCause(resErr).Error()})
		}
		return err
	}
	return nil
}

func (s *Shell) rejectLine(c *cycle, err error) {
	s.lastRet = ExitSyntaxError
	fmt.Fprintf(s.stderr, "%s%v\n", diagPrefix, err)

	var text string
	if c.line != nil {
		text = c.text()
	}
	s.Log.Record(&logger.ParseError{Line: text, Error: rootCause(err).Error()})
}

// rootCause strips wrapping so similar failures group together in reports.
func rootCause(err error) error {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err
		}
		err = inner
	}
}

func (s *Shell) logStep(res *executor.StepResult) {
	s.lastRet = res.ExitCode()

	var argvs [][]string
	for _, cmd := range res.Commands {
		argvs = append(argvs, cmd.Args)
	}
	s.Log.Record(&logger.Step{Commands: argvs, ExitCodes: res.ExitCodes})
}
