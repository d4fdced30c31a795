package stage

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/josephlewis42/minishell/core/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == Verb {
		os.Exit(Main(os.Args[1:], os.Stderr))
	}
	os.Exit(m.Run())
}

type stageResult struct {
	stdout string
	stderr string
	code   int
}

func runStage(t *testing.T, args []string) stageResult {
	t.Helper()

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := exec.Command(os.Args[0], args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err := cmd.Run()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		t.Fatal(err)
	}

	return stageResult{
		stdout: stdout.String(),
		stderr: stderr.String(),
		code:   cmd.ProcessState.ExitCode(),
	}
}

func TestArgs(t *testing.T) {
	cases := map[string]struct {
		cmd      command.Command
		pipeOut  bool
		expected []string
	}{
		"plain": {
			cmd:      command.Command{Path: "ls", Args: []string{"ls", "-l"}},
			expected: []string{Verb, "--", "ls", "-l"},
		},
		"default fd": {
			cmd: command.Command{Path: "cat", Args: []string{"cat"},
				Redirect: &command.Redirect{FD: command.DefaultFD, Mode: command.ModeRead, Filename: "in.txt"}},
			expected: []string{Verb, "--op=<", "--file=in.txt", "--", "cat"},
		},
		"explicit fd with pipe": {
			cmd: command.Command{Path: "prog", Args: []string{"prog"},
				Redirect: &command.Redirect{FD: 2, Mode: command.ModeAppend, Filename: "err.txt"}},
			pipeOut:  true,
			expected: []string{Verb, "--fd=2", "--op=>>", "--file=err.txt", "--pipe-out", "--", "prog"},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.expected, Args(&tc.cmd, tc.pipeOut))
		})
	}
}

func TestParse(t *testing.T) {
	cmd := &command.Command{
		Path:     "grep",
		Args:     []string{"grep", "--count", "-e", "x"},
		Redirect: &command.Redirect{FD: 3, Mode: command.ModeTruncate, Filename: "-dash=name"},
	}

	opts, err := parse(Args(cmd, true))
	require.NoError(t, err)

	assert.Equal(t, cmd.Redirect, opts.redirect)
	assert.True(t, opts.pipeOut)
	assert.Equal(t, cmd.Args, opts.argv)
}

func TestParseErrors(t *testing.T) {
	_, err := parse([]string{Verb, "--"})
	assert.Error(t, err)

	_, err = parse([]string{Verb, "--op=<>", "--file=x", "--", "true"})
	assert.True(t, errors.Is(err, command.ErrUnknownMode))
}

func TestMainExec(t *testing.T) {
	res := runStage(t, Args(&command.Command{Path: "echo", Args: []string{"echo", "hello", "world"}}, false))

	assert.Equal(t, 0, res.code)
	assert.Equal(t, "hello world\n", res.stdout)
	assert.Empty(t, res.stderr)
}

func TestMainExitStatus(t *testing.T) {
	res := runStage(t, Args(&command.Command{Path: "false", Args: []string{"false"}}, false))
	assert.Equal(t, 1, res.code)
	assert.Empty(t, res.stderr)
}

func TestMainCommandNotFound(t *testing.T) {
	res := runStage(t, Args(&command.Command{Path: "no-such-program-xyz", Args: []string{"no-such-program-xyz"}}, false))

	assert.Equal(t, 1, res.code)
	assert.Equal(t, "minishell: no-such-program-xyz: command not found\n", res.stderr)
}

func TestMainRedirectOpenFailure(t *testing.T) {
	cmd := &command.Command{
		Path:     "cat",
		Args:     []string{"cat"},
		Redirect: &command.Redirect{FD: command.DefaultFD, Mode: command.ModeRead, Filename: "/does/not/exist"},
	}
	res := runStage(t, Args(cmd, false))

	assert.Equal(t, 1, res.code)
	assert.Equal(t, "minishell: can't open file /does/not/exist\n", res.stderr)
}

func TestMainUnknownMode(t *testing.T) {
	res := runStage(t, []string{Verb, "--op=<>", "--file=x", "--", "true"})

	assert.Equal(t, 1, res.code)
	assert.Equal(t, "minishell: unknown redirection <>\n", res.stderr)
}

func TestMainRedirectOutput(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.txt")
	cmd := &command.Command{
		Path:     "echo",
		Args:     []string{"echo", "to file"},
		Redirect: &command.Redirect{FD: command.DefaultFD, Mode: command.ModeTruncate, Filename: outPath},
	}
	res := runStage(t, Args(cmd, false))

	assert.Equal(t, 0, res.code)
	assert.Empty(t, res.stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "to file\n", string(data))
}

func TestMainPipeWinsOverRedirect(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.txt")
	cmd := &command.Command{
		Path:     "echo",
		Args:     []string{"echo", "to pipe"},
		Redirect: &command.Redirect{FD: command.DefaultFD, Mode: command.ModeTruncate, Filename: outPath},
	}
	res := runStage(t, Args(cmd, true))

	assert.Equal(t, 0, res.code)
	assert.Equal(t, "to pipe\n", res.stdout)

	// The redirect still ran, so the file exists but is empty.
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestMainPipeSurvivesHighRedirect(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.txt")
	cmd := &command.Command{
		Path:     "echo",
		Args:     []string{"echo", "to pipe"},
		Redirect: &command.Redirect{FD: 10, Mode: command.ModeTruncate, Filename: outPath},
	}
	res := runStage(t, Args(cmd, true))

	assert.Equal(t, 0, res.code)
	assert.Equal(t, "to pipe\n", res.stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestMainRedirectReplacesStdin(t *testing.T) {
	inPath := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(inPath, []byte("from file\n"), 0600))

	cmd := &command.Command{
		Path:     "cat",
		Args:     []string{"cat"},
		Redirect: &command.Redirect{FD: command.DefaultFD, Mode: command.ModeRead, Filename: inPath},
	}
	stdout := &bytes.Buffer{}
	proc := exec.Command(os.Args[0], Args(cmd, false)...)
	proc.Stdin = bytes.NewBufferString("from pipe\n")
	proc.Stdout = stdout
	require.NoError(t, proc.Run())

	assert.Equal(t, "from file\n", stdout.String())
}
