package player

import (
	"context"

	"github.com/projector-cli/projector/engine"
)

// Proc is the part of a running engine the session drives.
type Proc interface {
	Lines() <-chan engine.Line
	Exited() <-chan engine.ExitStatus
	WriteCommand(text string) bool
	RequestStop()
	IsAlive() bool
	Kill()
}

// Spawner starts engine processes.
type Spawner func(ctx context.Context, binary string, args []string, opts ...engine.Option) (Proc, error)

func spawnProcess(ctx context.Context, binary string, args []string, opts ...engine.Option) (Proc, error) {
	p, err := engine.Spawn(ctx, binary, args, opts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}
