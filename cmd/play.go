package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/projector-cli/projector/backend"
	"github.com/projector-cli/projector/history"
	"github.com/projector-cli/projector/key"
	"github.com/projector-cli/projector/log"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/player"
	"github.com/projector-cli/projector/query"
	"github.com/projector-cli/projector/tui"
	"github.com/projector-cli/projector/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringP("force", "f", "", "Play with this engine regardless of what it supports")
	lo.Must0(playCmd.RegisterFlagCompletionFunc("force", completionEngines))
	playCmd.Flags().BoolP("choose", "c", false, "Pick the engine from those able to play the reference")
	playCmd.Flags().Bool("no-tui", false, "Print events instead of showing the playback view")
	playCmd.Flags().String("wid", "", "Window id to render into, decimal or 0x-prefixed hex")
	playCmd.Flags().String("display", "", "Display the window belongs to")
	playCmd.Flags().String("window-size", "", "Window size as WIDTHxHEIGHT, used to letterbox and scale the video")
	playCmd.Flags().String("aspect", "", "Aspect of the screen the window covers as NUM:DEN, defaults to the window shape")
	playCmd.Flags().Float64("from", 0, "Start position in seconds")
	playCmd.Flags().Bool("no-resume", false, "Ignore the saved position")

	playCmd.Flags().Float64("audio-delay", 0, "Audio delay in seconds")
	lo.Must0(viper.BindPFlag(key.AudioDelay, playCmd.Flags().Lookup("audio-delay")))
}

var playCmd = &cobra.Command{
	Use:   "play [reference]",
	Short: "Play a file, disc or stream",
	Long: `Play a file, disc or stream with the best suited engine.

References are paths, urls or disc references such as dvd:///2 or dvd:/path/to/image.iso/1.`,
	Example: "  projector play ~/movies/big_buck_bunny.avi\n  projector play -c dvd:///1",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref, err := resolveRef(args[0])
		handleErr(err)

		reg := newRegistry()
		checkEngines(reg)

		b := reg.Get(chooseEngine(cmd, reg, ref)).MustGet()

		events := tui.NewEvents()
		opts := append(sessionOptions(), player.WithHandler(events.Handle))
		if w, ok := windowFlag(cmd); ok {
			opts = append(opts, player.WithWindow(w))
		}

		session, err := b.Session(opts...)
		handleErr(err)
		defer util.Ignore(session.Close)

		start := startPosition(cmd, ref)
		handleErr(session.Open(ref))

		var result tui.Result
		if useTUI(cmd) {
			result, err = tui.Run(tui.Options{
				Session:  session,
				Events:   events,
				Ref:      ref,
				Engine:   b.Engine.ID(),
				SeekStep: viper.GetFloat64(key.PlayerSeekStep),
				Resume:   start,
			})
		} else {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			result, err = runPlain(ctx, session, events, start)
		}
		handleErr(err)

		remember(ref, b.Engine.ID(), result)
		handleErr(result.Err)
	},
}

func chooseEngine(cmd *cobra.Command, reg *backend.Registry[*player.Backend], ref mrl.Ref) string {
	forced := lo.Must(cmd.Flags().GetString("force"))
	if forced != "" {
		if !reg.Has(forced) {
			handleErr(fmt.Errorf("unknown engine %q, available: %v", forced, reg.IDs()))
		}
		return forced
	}

	candidates := playable(commandContext(cmd), reg, ref)
	if len(candidates) == 0 {
		handleErr(fmt.Errorf("no engine can play %s", ref))
	}

	if !lo.Must(cmd.Flags().GetBool("choose")) || len(candidates) == 1 {
		return candidates[0]
	}

	var choice string
	handleErr(survey.AskOne(&survey.Select{
		Message: "Engine",
		Options: candidates,
		Default: candidates[0],
	}, &choice))
	return choice
}

func windowFlag(cmd *cobra.Command) (player.Window, bool) {
	raw := lo.Must(cmd.Flags().GetString("wid"))
	if raw == "" {
		return player.Window{}, false
	}

	id, err := strconv.ParseUint(raw, 0, 64)
	if err != nil {
		handleErr(fmt.Errorf("invalid window id %q: %w", raw, err))
	}

	w := player.Window{ID: id, Display: lo.Must(cmd.Flags().GetString("display"))}
	if size := lo.Must(cmd.Flags().GetString("window-size")); size != "" {
		if _, err := fmt.Sscanf(size, "%dx%d", &w.Width, &w.Height); err != nil || !w.Sized() {
			handleErr(fmt.Errorf("invalid window size %q, expected WIDTHxHEIGHT", size))
		}
	}
	if aspect := lo.Must(cmd.Flags().GetString("aspect")); aspect != "" {
		if _, err := fmt.Sscanf(aspect, "%d:%d", &w.Aspect.Num, &w.Aspect.Den); err != nil || w.Aspect.Num <= 0 || w.Aspect.Den <= 0 {
			handleErr(fmt.Errorf("invalid aspect %q, expected NUM:DEN", aspect))
		}
	}

	return w, true
}

// startPosition is the explicit --from, else the saved position.
func startPosition(cmd *cobra.Command, ref mrl.Ref) float64 {
	if cmd.Flags().Changed("from") {
		return lo.Must(cmd.Flags().GetFloat64("from"))
	}

	if lo.Must(cmd.Flags().GetBool("no-resume")) || !viper.GetBool(key.HistoryResume) {
		return 0
	}
	return history.Resume(ref).OrEmpty()
}

func useTUI(cmd *cobra.Command) bool {
	if lo.Must(cmd.Flags().GetBool("no-tui")) || !viper.GetBool(key.CliTUI) {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func remember(ref mrl.Ref, engine string, result tui.Result) {
	if err := query.Remember(ref.String(), 1); err != nil {
		log.Warnf("remember %s: %v", ref, err)
	}

	if !viper.GetBool(key.HistorySave) || result.Position <= 0 {
		return
	}

	position := result.Position
	if result.Ended && result.Length > 0 {
		position = result.Length
	}

	if err := history.Save(ref, engine, position, result.Length); err != nil {
		log.Warnf("save history of %s: %v", ref, err)
	}
}
