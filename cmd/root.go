// Package cmd implements the command-line interface for projector.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/projector-cli/projector/backend"
	"github.com/projector-cli/projector/constant"
	"github.com/projector-cli/projector/key"
	"github.com/projector-cli/projector/log"
	"github.com/projector-cli/projector/style"
	"github.com/projector-cli/projector/util"
	"github.com/projector-cli/projector/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("engine", "e", "", "Preferred engine when several can play a reference")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("engine", completionEngines))
	lo.Must0(viper.BindPFlag(key.PlayerDefault, rootCmd.PersistentFlags().Lookup("engine")))

	rootCmd.PersistentFlags().StringSliceP("require", "r", []string{}, "Capabilities the selected engine must have")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("require", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return lo.Map(backend.AllCapabilities, func(c backend.Capability, _ int) string { return string(c) }), cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(viper.BindPFlag(key.PlayerRequire, rootCmd.PersistentFlags().Lookup("require")))

	// leftovers of crashed runs
	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd is the entry point of projector.
var rootCmd = &cobra.Command{
	Use:   constant.Projector,
	Short: "Play media through external engines from the terminal",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(style.HiPurple).Render("    - Play media through external engines from the terminal"),
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		if len(args) == 0 {
			handleErr(cmd.Help())
			return
		}

		playCmd.Run(playCmd, args)
	},
}

// Execute runs the command line.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", style.Fail, strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
