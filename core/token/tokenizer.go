package token

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode"
)

var (
	// ErrTooManyTokens is returned when a line holds more tokens than allowed.
	ErrTooManyTokens = errors.New("too many tokens")
	// ErrTokenTooLong is returned when a single token exceeds the length limit.
	ErrTokenTooLong = errors.New("token too long")
)

// Limits bounds the size of a tokenized line. Zero values disable a bound.
type Limits struct {
	MaxTokens      int
	MaxTokenLength int
}

// DefaultLimits matches the classic fixed-size lexeme table.
var DefaultLimits = Limits{
	MaxTokens:      32,
	MaxTokenLength: 127,
}

// Tokenizer reads lines from a rune stream and splits them into tokens.
type Tokenizer struct {
	r      io.RuneScanner
	limits Limits
}

// NewTokenizer creates a tokenizer over r. If r isn't already an
// io.RuneScanner it is buffered.
func NewTokenizer(r io.Reader, limits Limits) *Tokenizer {
	rs, ok := r.(io.RuneScanner)
	if !ok {
		rs = bufio.NewReader(r)
	}
	return &Tokenizer{r: rs, limits: limits}
}

// lineState accumulates tokens for one call to Next.
type lineState struct {
	line    *Line
	current []rune
	limits  Limits
	err     error
}

func (s *lineState) add(r rune) {
	if s.err != nil {
		return
	}
	if s.limits.MaxTokenLength > 0 && len(s.current) >= s.limits.MaxTokenLength {
		s.err = fmt.Errorf("%w: more than %d characters", ErrTokenTooLong, s.limits.MaxTokenLength)
		return
	}
	s.current = append(s.current, r)
}

// closeToken finishes the token in progress, if any.
func (s *lineState) closeToken() {
	if len(s.current) == 0 {
		return
	}
	s.emit(string(s.current))
	s.current = s.current[:0]
}

func (s *lineState) emit(text string) {
	if s.err != nil {
		return
	}
	if s.limits.MaxTokens > 0 && len(s.line.Tokens) >= s.limits.MaxTokens {
		s.err = fmt.Errorf("%w: more than %d", ErrTooManyTokens, s.limits.MaxTokens)
		return
	}
	s.line.Tokens = append(s.line.Tokens, Token{Text: text})
}

// Next reads one line and returns its tokens. Line.EOF reports whether the
// stream ended; a final line without a trailing newline still carries its
// tokens. When a limit is exceeded the remainder of the line is consumed and
// the limit error is returned along with the partial Line.
func (t *Tokenizer) Next() (*Line, error) {
	s := &lineState{line: &Line{}, limits: t.limits}

	for {
		r, _, err := t.r.ReadRune()
		switch {
		case errors.Is(err, io.EOF):
			s.closeToken()
			s.line.EOF = true
			return s.line, s.err
		case err != nil:
			return s.line, err
		}

		switch {
		case r == '\n':
			s.closeToken()
			return s.line, s.err

		case r == '|', r == ';', r == '<':
			s.closeToken()
			s.emit(string(r))

		case r == '>':
			s.closeToken()
			next, _, err := t.r.ReadRune()
			switch {
			case err == nil && next == '>':
				s.emit(">>")
			case err == nil:
				if err := t.r.UnreadRune(); err != nil {
					return s.line, err
				}
				s.emit(">")
			case errors.Is(err, io.EOF):
				s.emit(">")
				s.line.EOF = true
				return s.line, s.err
			default:
				return s.line, err
			}

		case unicode.IsGraphic(r) && !unicode.IsSpace(r):
			s.add(r)

		default:
			// Blanks and non-printing characters separate tokens.
			s.closeToken()
		}
	}
}
