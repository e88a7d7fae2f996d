package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/projector-cli/projector/key"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/player"
	"github.com/projector-cli/projector/protocol"
	"github.com/projector-cli/projector/style"
	"github.com/projector-cli/projector/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const identifyTimeout = 30 * time.Second

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON object")
	infoCmd.Flags().StringP("force", "f", "", "Identify with this engine")
	lo.Must0(infoCmd.RegisterFlagCompletionFunc("force", completionEngines))
}

var infoCmd = &cobra.Command{
	Use:   "info [reference]",
	Short: "Identify a reference without playing it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref, err := resolveRef(args[0])
		handleErr(err)

		reg := newRegistry()
		checkEngines(reg)

		id := lo.Must(cmd.Flags().GetString("force"))
		if id == "" {
			candidates := playable(commandContext(cmd), reg, ref)
			if len(candidates) == 0 {
				handleErr(fmt.Errorf("no engine can play %s", ref))
			}
			id = candidates[0]
		}

		b, ok := reg.Get(id).Get()
		if !ok {
			handleErr(fmt.Errorf("unknown engine %q", id))
		}

		info, err := identify(b, ref)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(info.Map()))
			return
		}

		printStreamInfo(cmd, id, info)
	},
}

// identify opens ref on b and returns what the engine reported about it.
func identify(b *player.Backend, ref mrl.Ref) (protocol.StreamInfo, error) {
	events := make(chan player.Event, 16)
	s, err := b.Session(append(sessionOptions(), player.WithHandler(func(ev player.Event) {
		select {
		case events <- ev:
		default:
		}
	}))...)
	if err != nil {
		return protocol.StreamInfo{}, err
	}
	defer util.Ignore(s.Close)

	if err := s.Open(ref); err != nil {
		return protocol.StreamInfo{}, err
	}

	timeout := time.After(viper.GetDuration(key.PlayerStopTimeout) + identifyTimeout)
	for {
		select {
		case ev := <-events:
			switch ev.Kind {
			case player.EventOpen:
				return ev.Info, nil
			case player.EventError:
				return protocol.StreamInfo{}, ev.Err
			case player.EventCrashed:
				return protocol.StreamInfo{}, fmt.Errorf("%s crashed: %s", b.Engine.ID(), ev.Exit)
			case player.EventQuit:
				return protocol.StreamInfo{}, fmt.Errorf("%s quit before identifying %s", b.Engine.ID(), ref)
			}
		case <-timeout:
			return protocol.StreamInfo{}, fmt.Errorf("%s did not identify %s in time", b.Engine.ID(), ref)
		}
	}
}

func printStreamInfo(cmd *cobra.Command, engine string, info protocol.StreamInfo) {
	keyStyle := style.New().Bold(true).Foreground(style.Purple).Render

	cmd.Printf("%s %s\n\n", style.Title(engine), style.Faint(info.Summary()))

	keys := info.Keys()
	width := lo.Max(lo.Map(keys, func(k string, _ int) int { return len(k) }))
	for _, k := range keys {
		v, _ := info.Get(k)
		cmd.Printf("  %s%*s %v\n", keyStyle(k), width-len(k), "", v)
	}
}
