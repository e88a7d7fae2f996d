package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/projector-cli/projector/history"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/query"
	"github.com/projector-cli/projector/style"
	"github.com/projector-cli/projector/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON array")
	historyCmd.Flags().IntP("limit", "n", 0, "Show at most this many entries")

	historyCmd.AddCommand(historyForgetCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List played references and where playback stopped",
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := history.Sorted()
		handleErr(err)

		if limit := lo.Must(cmd.Flags().GetInt("limit")); limit > 0 {
			entries = lo.Slice(entries, 0, limit)
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(entries))
			return
		}

		if len(entries) == 0 {
			cmd.Println(style.Faint("nothing played yet"))
			return
		}

		finished := lo.CountBy(entries, func(e *history.Entry) bool { return e.Finished })
		cmd.Println(style.Faint(fmt.Sprintf("%s, %d finished", util.Quantify(len(entries), "reference", "references"), finished)))

		bar := progress.New(progress.WithGradient(string(style.Mauve), string(style.Peach)), progress.WithWidth(20), progress.WithoutPercentage())
		for _, e := range entries {
			mark := style.Arrow
			if e.Finished {
				mark = style.Success
			}

			cmd.Printf("%s %s %s\n", mark, bar.ViewAs(e.Progress()), e)
			cmd.Printf("  %s\n", style.Faint(fmt.Sprintf("%s, %s", e.Engine, e.PlayedAt.Format("2006-01-02 15:04"))))
		}
	},
}

var historyForgetCmd = &cobra.Command{
	Use:   "forget [reference]",
	Short: "Forget the saved position of a reference and stop suggesting it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref, err := mrl.Parse(args[0])
		handleErr(err)

		handleErr(history.Remove(ref))
		handleErr(query.Forget(ref.String()))
		cmd.Printf("%s forgot %s\n", style.Success, ref)
	},
}
