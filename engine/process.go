package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/projector-cli/projector/log"
	"golang.org/x/sync/errgroup"
)

// Process is a running engine.
type Process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	ipc   *IPC
	opts  options
	log   *log.Logger

	lines  chan Line
	exited chan ExitStatus
	done   chan struct{}

	alive    atomic.Bool
	stopping atomic.Bool
	stopOnce sync.Once
	writeMu  sync.Mutex
}

// Spawn starts binary with args. Cancelling ctx kills the process group and
// abandons any output not yet consumed.
func Spawn(ctx context.Context, binary string, args []string, opts ...Option) (*Process, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Cancel = func() error { return killProcess(cmd) }
	cmd.Dir = o.dir
	if len(o.env) > 0 {
		cmd.Env = append(os.Environ(), o.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	p := &Process{
		cmd:    cmd,
		stdin:  stdin,
		opts:   o,
		log:    log.For("engine").With("pid", cmd.Process.Pid),
		lines:  make(chan Line),
		exited: make(chan ExitStatus, 1),
		done:   make(chan struct{}),
	}
	p.alive.Store(true)
	p.log.Infof("started %s %s", binary, strings.Join(args, " "))

	var forwarded chan struct{}
	if o.ipcPath != "" {
		p.ipc = DialIPC(ctx, o.ipcPath, o.ipcHello...)
		forwarded = make(chan struct{})
		go func() {
			defer close(forwarded)
			p.forward(ctx)
		}()
	}

	go p.supervise(ctx, stdout, stderr, forwarded)
	return p, nil
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Lines is the merged output feed. It is closed before Exited delivers.
func (p *Process) Lines() <-chan Line {
	return p.lines
}

// Exited delivers the exit status exactly once, then closes.
func (p *Process) Exited() <-chan ExitStatus {
	return p.exited
}

// IsAlive reports whether the process has not been reaped yet.
func (p *Process) IsAlive() bool {
	return p.alive.Load()
}

// Stopping reports whether RequestStop was called.
func (p *Process) Stopping() bool {
	return p.stopping.Load()
}

// WriteCommand sends one command line to the engine.
// It returns false when the process is gone or the write failed.
func (p *Process) WriteCommand(text string) bool {
	if !p.alive.Load() {
		return false
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.log.Infof("command %q", text)

	var err error
	if p.ipc != nil {
		err = p.ipc.Write(text)
	} else {
		_, err = io.WriteString(p.stdin, text+"\n")
	}

	if err != nil {
		p.log.Debugf("command %q not delivered: %v", text, err)
		return false
	}
	return true
}

// RequestStop asks the engine to quit, twice, then kills the process group if
// it is still running after the stop timeout. Only the first call has effect.
func (p *Process) RequestStop() {
	p.stopOnce.Do(func() {
		p.stopping.Store(true)
		p.WriteCommand(p.opts.stopCommand)
		p.WriteCommand(p.opts.stopCommand)

		go func() {
			select {
			case <-p.done:
			case <-time.After(p.opts.stopTimeout):
				p.log.Warnf("still running %s after stop, killing", p.opts.stopTimeout)
				p.Kill()
			}
		}()
	})
}

// Kill terminates the process group immediately.
func (p *Process) Kill() {
	if err := killProcess(p.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.log.Debugf("kill: %v", err)
	}
}

func (p *Process) supervise(ctx context.Context, stdout, stderr io.Reader, forwarded chan struct{}) {
	var g errgroup.Group
	g.Go(func() error { return p.read(ctx, stdout, Stdout) })
	g.Go(func() error { return p.read(ctx, stderr, Stderr) })
	if err := g.Wait(); err != nil {
		p.log.Debugf("output: %v", err)
	}

	status := exitStatus(p.cmd.Wait())
	close(p.done)
	p.alive.Store(false)
	_ = p.stdin.Close()

	if p.ipc != nil {
		_ = p.ipc.Close()
		<-forwarded
	}

	close(p.lines)
	p.log.Infof("%s", status)

	p.exited <- status
	close(p.exited)
}

func (p *Process) read(ctx context.Context, r io.Reader, stream Stream) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), maxLine)
	scanner.Split(truncating(scanLines, maxLine))

	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}

		p.log.Tracef("%s: %s", stream, text)
		if !p.emit(ctx, Line{Text: text, Stream: stream}) {
			// keep draining so the child never blocks on a full pipe
			_, _ = io.Copy(io.Discard, r)
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}

func (p *Process) forward(ctx context.Context) {
	for text := range p.ipc.Lines() {
		p.log.Tracef("socket: %s", text)
		if !p.emit(ctx, Line{Text: text, Stream: Socket}) {
			return
		}
	}
}

func (p *Process) emit(ctx context.Context, line Line) bool {
	select {
	case p.lines <- line:
		return true
	case <-ctx.Done():
		return false
	}
}

func exitStatus(err error) ExitStatus {
	if err == nil {
		return ExitStatus{}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if sig, ok := signaled(exitErr); ok {
			return ExitStatus{Code: -1, Signaled: true, Signal: sig, Err: err}
		}
		return ExitStatus{Code: exitErr.ExitCode(), Err: err}
	}

	return ExitStatus{Code: -1, Err: err}
}

// Run executes binary to completion and collects its output lines.
// It is meant for short-lived probes such as help listings.
func Run(ctx context.Context, binary string, args ...string) ([]string, ExitStatus, error) {
	p, err := Spawn(ctx, binary, args)
	if err != nil {
		return nil, ExitStatus{}, err
	}

	var lines []string
	for line := range p.Lines() {
		lines = append(lines, line.Text)
	}

	return lines, <-p.Exited(), nil
}
