// Package redirect applies a command's redirection to the descriptor table of
// the calling process. It is meant to run in a freshly started stage process
// just before its image is replaced.
package redirect

import (
	"errors"
	"fmt"

	"github.com/josephlewis42/minishell/core/command"
	"golang.org/x/sys/unix"
)

// FileMode is the permission requested for files created by a redirection,
// the process umask still applies.
const FileMode = 0777

// OpenError is returned when the redirection target can't be opened.
type OpenError struct {
	Filename string
	Err      error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("can't open file %s", e.Filename)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// OpenFlags returns the open(2) flags for a mode.
func OpenFlags(mode command.Mode) (int, error) {
	switch mode {
	case command.ModeTruncate:
		return unix.O_WRONLY | unix.O_CREAT | unix.O_TRUNC, nil
	case command.ModeAppend:
		return unix.O_WRONLY | unix.O_CREAT | unix.O_APPEND, nil
	case command.ModeRead:
		return unix.O_RDONLY, nil
	default:
		return 0, fmt.Errorf("%w %v", command.ErrUnknownMode, mode)
	}
}

// Apply closes the redirect's target descriptor and opens its file in that
// slot. A nil redirect is a no-op.
func Apply(r *command.Redirect) error {
	if r == nil {
		return nil
	}

	flags, err := OpenFlags(r.Mode)
	if err != nil {
		return err
	}

	target := r.Target()
	if err := unix.Close(target); err != nil && !errors.Is(err, unix.EBADF) {
		return err
	}

	fd, err := unix.Open(r.Filename, flags, FileMode)
	if err != nil {
		return &OpenError{Filename: r.Filename, Err: err}
	}

	// The lowest free slot is normally the one just closed, but a lower one
	// may have been free already.
	if fd != target {
		if err := Dup(fd, target); err != nil {
			unix.Close(fd)
			return &OpenError{Filename: r.Filename, Err: err}
		}
		unix.Close(fd)
	}
	return nil
}
