// Package executor runs a command Sequence one sequence step at a time,
// spawning a process per command and connecting pipe-chains with OS pipes.
package executor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/josephlewis42/minishell/core/command"
	"github.com/josephlewis42/minishell/core/stage"
)

// ResourceError is a failure to create a pipe or spawn a process. The
// interpreter can't make further progress after one.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// StepResult describes one finished sequence step.
type StepResult struct {
	// Commands run by the step, a single command or a whole pipe-chain.
	Commands []command.Command
	// ExitCodes holds one exit status per command.
	ExitCodes []int
}

// ExitCode is the status of the last command in the step.
func (r *StepResult) ExitCode() int {
	if len(r.ExitCodes) == 0 {
		return 0
	}
	return r.ExitCodes[len(r.ExitCodes)-1]
}

// Executor spawns commands.
type Executor struct {
	// Launcher is the program, and any leading arguments, that runs a stage.
	// The stage arguments from stage.Args are appended to it.
	Launcher []string

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Env is the environment of spawned processes, nil inherits the
	// interpreter's.
	Env []string

	// OnStep, if set, is called after each sequence step finishes.
	OnStep func(*StepResult)
}

// New creates an Executor that re-runs the current binary as its launcher and
// uses the process's standard streams.
func New() (*Executor, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return &Executor{
		Launcher: []string{self},
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}, nil
}

// Run executes every step of seq in order. Steps run regardless of the exit
// status of earlier ones. It stops early only on a *ResourceError.
func (e *Executor) Run(seq *command.Sequence) ([]StepResult, error) {
	var results []StepResult
	for i := 0; i < seq.Len(); {
		consumed, res, err := e.RunStep(seq.Commands, i)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
		if e.OnStep != nil {
			e.OnStep(res)
		}
		i += consumed
	}
	return results, nil
}

// RunStep runs the sequence step starting at cmds[i] and waits for all of its
// processes. It returns the number of commands the step used.
func (e *Executor) RunStep(cmds []command.Command, i int) (int, *StepResult, error) {
	seq := command.Sequence{Commands: cmds}
	chain := cmds[i : i+seq.ChainLen(i)]
	if chain[len(chain)-1].FeedsNext {
		return 0, nil, errors.New("pipe-chain has no final command")
	}

	codes, err := e.runChain(chain)
	if err != nil {
		return 0, nil, err
	}
	return len(chain), &StepResult{Commands: chain, ExitCodes: codes}, nil
}

// connection is the pair of descriptors a stage is started with.
type connection struct {
	stdin   *os.File
	stdout  *os.File
	pipeOut bool
}

// plan creates every pipe the chain needs up front.
func (e *Executor) plan(n int) ([]connection, []*os.File, error) {
	conns := make([]connection, n)
	var pipeEnds []*os.File

	for k := range conns {
		conns[k].stdin = e.Stdin
		conns[k].stdout = e.Stdout
	}

	for k := 0; k < n-1; k++ {
		r, w, err := os.Pipe()
		if err != nil {
			closeAll(pipeEnds)
			return nil, nil, &ResourceError{Op: "pipe", Err: err}
		}
		pipeEnds = append(pipeEnds, r, w)

		conns[k].stdout, conns[k].pipeOut = w, true
		conns[k+1].stdin = r
	}
	return conns, pipeEnds, nil
}

func (e *Executor) runChain(chain []command.Command) ([]int, error) {
	conns, pipeEnds, err := e.plan(len(chain))
	if err != nil {
		return nil, err
	}
	open := make(map[*os.File]bool)
	for _, f := range pipeEnds {
		open[f] = true
	}

	var started []*exec.Cmd
	for k := range chain {
		proc := e.command(&chain[k], conns[k])
		if err := proc.Start(); err != nil {
			for f := range open {
				f.Close()
			}
			abort(started)
			return nil, &ResourceError{Op: fmt.Sprintf("spawn %s", chain[k].Path), Err: err}
		}
		started = append(started, proc)

		// The child has its own copies now; drop ours so readers see EOF
		// once every writer is gone.
		for _, f := range []*os.File{conns[k].stdin, conns[k].stdout} {
			if open[f] {
				f.Close()
				delete(open, f)
			}
		}
	}

	codes := make([]int, len(started))
	var waitErr error
	for k, proc := range started {
		code, err := wait(proc)
		if err != nil && waitErr == nil {
			waitErr = &ResourceError{Op: fmt.Sprintf("wait %s", chain[k].Path), Err: err}
		}
		codes[k] = code
	}
	return codes, waitErr
}

func (e *Executor) command(cmd *command.Command, conn connection) *exec.Cmd {
	args := append(append([]string{}, e.Launcher...), stage.Args(cmd, conn.pipeOut)...)
	path := e.Launcher[0]
	if resolved, err := exec.LookPath(path); err == nil {
		path = resolved
	}
	proc := &exec.Cmd{
		Path: path,
		Args: args,
		Env:  e.Env,
	}

	// A nil *os.File must stay a nil interface, exec substitutes /dev/null.
	if conn.stdin != nil {
		proc.Stdin = conn.stdin
	}
	if conn.stdout != nil {
		proc.Stdout = conn.stdout
	}
	if e.Stderr != nil {
		proc.Stderr = e.Stderr
	}
	return proc
}

// wait reaps proc and returns its exit status, using the shell convention of
// 128+signal for processes killed by a signal.
func wait(proc *exec.Cmd) (int, error) {
	err := proc.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return -1, err
	}

	state := proc.ProcessState
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), nil
	}
	return state.ExitCode(), nil
}

// abort kills and reaps already started stages so none are orphaned.
func abort(started []*exec.Cmd) {
	for _, proc := range started {
		proc.Process.Kill()
	}
	for _, proc := range started {
		proc.Wait()
	}
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}
