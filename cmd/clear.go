package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/projector-cli/projector/style"
	"github.com/projector-cli/projector/util"
	"github.com/projector-cli/projector/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), where.Cache},
	{"engine capabilities", "capabilities", mo.Some("e"), where.Capabilities},
	{"playback history", "history", mo.Some("s"), where.History},
	{"played references", "queries", mo.Some("q"), where.Queries},
	{"temporary files", "temp", mo.None[string](), where.Temp},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if short, ok := target.argShort.Get(); ok {
			clearCmd.Flags().BoolP(target.argLong, short, false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached and recorded data",
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool

		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.argLong)) {
				continue
			}

			anyCleared = true
			name := strings.ToUpper(target.name[:1]) + target.name[1:]

			e := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", style.Arrow, target.name))
			err := util.Delete(target.location())
			e()
			if err != nil && !os.IsNotExist(err) {
				handleErr(err)
			}
			fmt.Printf("%s %s cleared\n", style.Success, name)
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
