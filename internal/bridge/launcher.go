package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Process is a running engine. Stdout and Stderr reach EOF when the engine
// exits or is killed.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the engine has exited. Callers read Stdout and Stderr
	// to EOF first.
	Wait() error
	Kill() error
}

// Launcher starts engine processes.
type Launcher interface {
	Launch(ctx context.Context) (Process, error)
}

// ExecLauncher runs the engine as a child process.
type ExecLauncher struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
}

func (l ExecLauncher) Launch(ctx context.Context) (Process, error) {
	if l.Command == "" {
		return nil, fmt.Errorf("engine command is required")
	}
	cmd := exec.Command(l.Command, l.Args...)
	cmd.Dir = l.Dir
	if len(l.Env) > 0 {
		cmd.Env = l.Env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stderr: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine %s: %w", l.Command, err)
	}
	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }
func (p *execProcess) Stderr() io.Reader     { return p.stderr }
func (p *execProcess) Wait() error           { return p.cmd.Wait() }

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// ServeFunc runs an engine over the given streams until stdin ends or ctx is
// cancelled.
type ServeFunc func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error

// PipeLauncher runs the engine in process, connected through io.Pipe.
type PipeLauncher struct {
	Serve ServeFunc
}

var errKilled = errors.New("engine killed")

func (l PipeLauncher) Launch(ctx context.Context) (Process, error) {
	if l.Serve == nil {
		return nil, fmt.Errorf("serve function is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	runCtx, cancel := context.WithCancel(context.Background())

	p := &pipeProcess{
		stdin:  inW,
		stdout: outR,
		stderr: errR,
		inR:    inR,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		err := l.Serve(runCtx, inR, outW, errW)
		_ = outW.Close()
		_ = errW.Close()
		_ = inR.Close()
		p.err = err
		close(p.done)
	}()
	return p, nil
}

type pipeProcess struct {
	stdin  *io.PipeWriter
	stdout *io.PipeReader
	stderr *io.PipeReader
	inR    *io.PipeReader
	cancel context.CancelFunc

	done     chan struct{}
	err      error
	killOnce sync.Once
}

func (p *pipeProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *pipeProcess) Stdout() io.Reader     { return p.stdout }
func (p *pipeProcess) Stderr() io.Reader     { return p.stderr }

func (p *pipeProcess) Wait() error {
	<-p.done
	return p.err
}

func (p *pipeProcess) Kill() error {
	p.killOnce.Do(func() {
		p.cancel()
		_ = p.inR.CloseWithError(errKilled)
		_ = p.stdin.CloseWithError(errKilled)
		_ = p.stdout.CloseWithError(errKilled)
		_ = p.stderr.CloseWithError(errKilled)
	})
	return nil
}
