package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/projector-cli/projector/player"
	"github.com/projector-cli/projector/protocol"
	"github.com/projector-cli/projector/style"
	"github.com/projector-cli/projector/tui"
	"github.com/projector-cli/projector/util"
)

const settleInterval = 100 * time.Millisecond

// runPlain drives a session without the playback view, printing what happens.
// Cancelling ctx stops the session and waits for it to quit.
func runPlain(ctx context.Context, s *player.Session, events tui.Events, resume float64) (tui.Result, error) {
	var (
		result  tui.Result
		resumed bool
		stopped bool
	)

	// a failed open ends without a quit event
	settle := time.NewTicker(settleInterval)
	defer settle.Stop()

	for {
		select {
		case <-settle.C:
			if result.Err != nil && s.State() == player.NotRunning {
				return result, nil
			}
		case <-ctx.Done():
			if !stopped {
				stopped = true
				if err := s.Stop(); err != nil {
					if errors.Is(err, player.ErrInvalidState) {
						return result, nil
					}
					return result, err
				}
			}
			ctx = context.Background()
		case <-s.Done():
			return result, nil
		case ev := <-events:
			result.Position = ev.Position

			switch ev.Kind {
			case player.EventOpen:
				result.Length = ev.Info.Float(protocol.FieldLength)
				fmt.Printf("%s %s %s\n", style.Arrow, style.Bold(s.Ref().String()), style.Faint(ev.Info.Summary()))
				if err := s.Play(); err != nil {
					return result, err
				}
			case player.EventStart:
				fmt.Printf("%s playing with %s\n", style.Success, s.Engine())
				if resume > 0 && !resumed {
					resumed = true
					if err := s.Seek(resume, player.SeekAbsolute); err == nil {
						fmt.Printf("%s resumed at %s\n", style.Arrow, util.FormatSeconds(resume))
					}
				}
			case player.EventPause:
				fmt.Printf("%s paused at %s\n", style.Arrow, util.FormatSeconds(ev.Position))
			case player.EventPlay:
				fmt.Printf("%s resumed at %s\n", style.Arrow, util.FormatSeconds(ev.Position))
			case player.EventSeek:
				fmt.Printf("%s seeked to %s\n", style.Arrow, util.FormatSeconds(ev.Position))
			case player.EventEnd:
				result.Ended = true
				fmt.Printf("%s end of stream\n", style.Success)
			case player.EventError:
				fmt.Printf("%s %s\n", style.Fail, ev.Err)
				if result.Err == nil && !result.Ended {
					result.Err = ev.Err
				}
			case player.EventCrashed:
				result.Err = fmt.Errorf("engine crashed: %s", ev.Exit)
				return result, nil
			case player.EventQuit:
				return result, nil
			}
		}
	}
}
