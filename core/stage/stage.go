// Package stage is the child half of the executor. The interpreter starts
// itself with the Verb argument for every command it runs; the child rebinds
// its own descriptors and then replaces its image with the target program.
package stage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/josephlewis42/minishell/core/command"
	"github.com/josephlewis42/minishell/core/redirect"
	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/sys/unix"
)

// Verb is the first argument that routes a process into Main.
const Verb = "exec-stage"

const diagPrefix = "minishell: "

// Args builds the argument list, after the launcher prefix, that makes Main
// run cmd. pipeOut marks standard output as a pipe end that takes precedence
// over the command's own redirection. Standard input needs no mark: a
// redirection applied over an input pipe replaces it.
func Args(cmd *command.Command, pipeOut bool) []string {
	args := []string{Verb}
	if r := cmd.Redirect; r != nil {
		if r.FD != command.DefaultFD {
			args = append(args, "--fd="+strconv.Itoa(r.FD))
		}
		args = append(args, "--op="+r.Mode.Operator(), "--file="+r.Filename)
	}
	if pipeOut {
		args = append(args, "--pipe-out")
	}
	args = append(args, "--")
	return append(args, cmd.Args...)
}

type options struct {
	redirect *command.Redirect
	pipeOut  bool
	argv     []string
}

// parse reads the flags written by Args. args[0] is Verb.
func parse(args []string) (*options, error) {
	opts := getopt.New()
	fd := opts.IntLong("fd", 0, command.DefaultFD, "descriptor to redirect")
	op := opts.StringLong("op", 0, "", "redirection operator (<, > or >>)")
	file := opts.StringLong("file", 0, "", "redirection target")
	pipeOut := opts.BoolLong("pipe-out", 0, "standard output is a pipe")

	if err := opts.Getopt(args, nil); err != nil {
		return nil, err
	}

	out := &options{
		pipeOut: *pipeOut,
		argv:    opts.Args(),
	}
	if len(out.argv) == 0 {
		return nil, errors.New("no command given")
	}

	if *op != "" {
		// opts is still returned with an unknown operator so Main can name it.
		out.redirect = &command.Redirect{FD: *fd, Filename: *file}
		mode, err := command.ParseMode(*op)
		if err != nil {
			return out, err
		}
		out.redirect.Mode = mode
	}
	return out, nil
}

// Main runs in the stage process. It only returns when the program couldn't
// be started; the returned value is the exit status.
func Main(args []string, stderr io.Writer) int {
	opts, err := parse(args)
	switch {
	case errors.Is(err, command.ErrUnknownMode):
		fmt.Fprintf(stderr, "%s%v\n", diagPrefix, err)
		return 1
	case err != nil:
		fmt.Fprintf(stderr, "%s%s: %v\n", diagPrefix, Verb, err)
		return 2
	}

	if err := wire(opts); err != nil {
		fmt.Fprintf(stderr, "%s%v\n", diagPrefix, err)
		return 1
	}

	path := opts.argv[0]
	if resolved, err := exec.LookPath(path); err == nil {
		unix.Exec(resolved, opts.argv, os.Environ())
	}
	fmt.Fprintf(stderr, "%s%s: command not found\n", diagPrefix, path)
	return 1
}

// wire applies the redirection. An output pipe end is put back on standard
// output afterwards so the pipe wins over a redirect of the same descriptor.
func wire(opts *options) error {
	if opts.redirect == nil {
		return nil
	}

	if !opts.pipeOut {
		return redirect.Apply(opts.redirect)
	}

	saved, err := save(1, opts.redirect.Target())
	if err != nil {
		return err
	}
	if err := redirect.Apply(opts.redirect); err != nil {
		return err
	}
	return saved.restore()
}

type savedFD struct {
	target int
	copy   int
}

// save duplicates fd to a close-on-exec descriptor of at least 10 that lies
// above the redirection target, so applying the redirection can't close it.
func save(fd, target int) (savedFD, error) {
	floor := 10
	if target >= floor {
		floor = target + 1
	}
	copyFD, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, floor)
	if err != nil {
		return savedFD{}, fmt.Errorf("save descriptor %d: %w", fd, err)
	}
	return savedFD{target: fd, copy: copyFD}, nil
}

func (s savedFD) restore() error {
	if err := redirect.Dup(s.copy, s.target); err != nil {
		return fmt.Errorf("restore descriptor %d: %w", s.target, err)
	}
	return unix.Close(s.copy)
}
