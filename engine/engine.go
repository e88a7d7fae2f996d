// Package engine supervises an external playback engine running as a child process.
//
// The engine's stdout and stderr (and, for engines that talk over a socket, the
// IPC connection) are merged into a single line feed. The feed is closed and
// fully drained before the exit status is delivered, so a consumer never sees
// output after the exit notification.
package engine

import (
	"fmt"
	"time"
)

// Stream tells where a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
	Socket
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "socket"
	}
}

// Line is one line of engine output, without its terminator.
type Line struct {
	Text   string
	Stream Stream
}

// ExitStatus describes how the engine terminated.
type ExitStatus struct {
	Code     int
	Signaled bool
	Signal   string
	Err      error
}

// Clean reports a zero exit code without a signal.
func (s ExitStatus) Clean() bool {
	return s.Err == nil && !s.Signaled && s.Code == 0
}

func (s ExitStatus) String() string {
	switch {
	case s.Signaled:
		return "killed by " + s.Signal
	case s.Clean():
		return "exited cleanly"
	default:
		return fmt.Sprintf("exit code %d", s.Code)
	}
}

const (
	DefaultStopCommand = "quit"
	DefaultStopTimeout = 3 * time.Second
)

type options struct {
	stopCommand string
	stopTimeout time.Duration
	env         []string
	dir         string
	ipcPath     string
	ipcHello    []string
}

func defaultOptions() options {
	return options{
		stopCommand: DefaultStopCommand,
		stopTimeout: DefaultStopTimeout,
	}
}

// Option configures Spawn.
type Option func(*options)

// WithStopCommand sets the command written on RequestStop.
func WithStopCommand(command string) Option {
	return func(o *options) {
		o.stopCommand = command
	}
}

// WithStopTimeout sets how long RequestStop waits before killing the process group.
func WithStopTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.stopTimeout = timeout
		}
	}
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) Option {
	return func(o *options) {
		o.env = append(o.env, env...)
	}
}

func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithIPC routes commands to the unix socket at path instead of stdin.
// The hello lines are written as soon as the socket connects.
func WithIPC(path string, hello ...string) Option {
	return func(o *options) {
		o.ipcPath = path
		o.ipcHello = hello
	}
}
