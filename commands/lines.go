package commands

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/minishell/core/token"
	"github.com/mattn/go-isatty"
)

// lineSource produces one tokenized line per shell cycle.
type lineSource interface {
	Next(prompt string) (*token.Line, error)
	Close() error
}

// plainLines reads from a non-terminal, writing the prompt itself.
type plainLines struct {
	prompt    io.Writer
	tokenizer *token.Tokenizer
}

func (p *plainLines) Next(prompt string) (*token.Line, error) {
	if p.prompt != nil && prompt != "" {
		if _, err := io.WriteString(p.prompt, prompt); err != nil {
			return nil, err
		}
	}
	return p.tokenizer.Next()
}

func (p *plainLines) Close() error {
	return nil
}

// editedLines reads from a terminal with line editing and history.
type editedLines struct {
	rl     *readline.Instance
	limits token.Limits
}

func newEditedLines(stdin, stdout, stderr *os.File, limits token.Limits) (*editedLines, error) {
	cfg := &readline.Config{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		FuncIsTerminal: func() bool {
			return isTerminal(stdin) && isTerminal(stdout)
		},
	}
	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}
	return &editedLines{rl: rl, limits: limits}, nil
}

func (e *editedLines) Next(prompt string) (*token.Line, error) {
	e.rl.SetPrompt(prompt)
	text, err := e.rl.Readline()
	switch {
	case errors.Is(err, io.EOF):
		return &token.Line{EOF: true}, nil
	case errors.Is(err, readline.ErrInterrupt):
		// Interrupt clears the line.
		return &token.Line{}, nil
	case err != nil:
		return nil, err
	}

	line, err := token.NewTokenizer(strings.NewReader(text), e.limits).Next()
	if line != nil {
		// The reader ran out, the terminal didn't.
		line.EOF = false
	}
	return line, err
}

func (e *editedLines) Close() error {
	return e.rl.Close()
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
