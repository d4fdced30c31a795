// Package token splits a line of interpreter input into tokens.
package token

import "fmt"

// Class is the lexical class of a token, derived from its text.
type Class int

const (
	Word Class = iota
	Pipe
	Semicolon
	RedirectIn
	RedirectOut
	RedirectAppend
	Number
)

func (c Class) String() string {
	switch c {
	case Word:
		return "word"
	case Pipe:
		return "pipe"
	case Semicolon:
		return "semicolon"
	case RedirectIn:
		return "redirect-in"
	case RedirectOut:
		return "redirect-out"
	case RedirectAppend:
		return "redirect-append"
	case Number:
		return "number"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Token is a single lexical unit of the input.
type Token struct {
	Text string
}

// Class classifies the token by its content.
func (t Token) Class() Class {
	switch t.Text {
	case "|":
		return Pipe
	case ";":
		return Semicolon
	case "<":
		return RedirectIn
	case ">":
		return RedirectOut
	case ">>":
		return RedirectAppend
	}

	if t.Text == "" {
		return Word
	}
	for _, r := range t.Text {
		if r < '0' || r > '9' {
			return Word
		}
	}
	return Number
}

// IsRedirect reports whether the token is one of <, > or >>.
func (t Token) IsRedirect() bool {
	switch t.Class() {
	case RedirectIn, RedirectOut, RedirectAppend:
		return true
	}
	return false
}

// IsSeparator reports whether the token ends a command.
func (t Token) IsSeparator() bool {
	c := t.Class()
	return c == Pipe || c == Semicolon
}

// IsOperand reports whether the token can name a file or argument.
func (t Token) IsOperand() bool {
	c := t.Class()
	return c == Word || c == Number
}

func (t Token) String() string {
	return t.Text
}

// Line holds the tokens read for one input cycle.
type Line struct {
	Tokens []Token

	// EOF is set when the underlying stream is exhausted, as opposed to the
	// line simply ending with a newline.
	EOF bool
}

// Len returns the number of tokens in the line.
func (l *Line) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Tokens)
}

// At returns the token at position i. The second value is false when i is
// outside the line, which stands in for the end-of-line marker.
func (l *Line) At(i int) (Token, bool) {
	if l == nil || i < 0 || i >= len(l.Tokens) {
		return Token{}, false
	}
	return l.Tokens[i], true
}

// Texts returns the token values in order.
func (l *Line) Texts() []string {
	out := make([]string, 0, l.Len())
	for _, tok := range l.Tokens {
		out = append(out, tok.Text)
	}
	return out
}
