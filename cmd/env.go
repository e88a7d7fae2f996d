package cmd

import (
	"os"
	"strings"

	"github.com/projector-cli/projector/config"
	"github.com/projector-cli/projector/constant"
	"github.com/projector-cli/projector/style"
	"github.com/projector-cli/projector/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.SetOut(os.Stdout)
	envCmd.Flags().BoolP("set-only", "s", false, "Display only variables that are currently defined")
	envCmd.Flags().BoolP("unset-only", "u", false, "Display only variables that are currently undefined")
	envCmd.Flags().BoolP("keys", "k", false, "Show the configuration key each variable overrides")

	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
}

type envVar struct {
	Name, Key, Value string
}

// envName is the variable viper reads for a configuration key.
func envName(key string) string {
	return strings.ToUpper(constant.Projector + "_" + config.EnvKeyReplacer.Replace(key))
}

// envSection groups a key by its first segment. The config path override has no key.
func envSection(v envVar) string {
	if v.Key == "" {
		return "paths"
	}
	section, _, _ := strings.Cut(v.Key, ".")
	return section
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Display the supported environment variables",
	Long:  "Display every environment variable projector reads, grouped by configuration section, with its current process value.",
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))
		showKeys := lo.Must(cmd.Flags().GetBool("keys"))

		vars := lo.Map(config.EnvExposed, func(key string, _ int) envVar {
			name := envName(key)
			return envVar{Name: name, Key: key, Value: os.Getenv(name)}
		})
		vars = append(vars, envVar{Name: where.EnvConfigPath, Value: os.Getenv(where.EnvConfigPath)})

		vars = lo.Filter(vars, func(v envVar, _ int) bool {
			switch {
			case setOnly:
				return v.Value != ""
			case unsetOnly:
				return v.Value == ""
			}
			return true
		})

		groups := lo.GroupBy(vars, envSection)
		sections := lo.Keys(groups)
		slices.Sort(sections)

		name := style.New().Bold(true).Foreground(style.Purple)
		for i, section := range sections {
			if i > 0 {
				cmd.Println()
			}
			cmd.Println(style.Faint("# " + section))

			group := groups[section]
			slices.SortFunc(group, func(a, b envVar) int { return strings.Compare(a.Name, b.Name) })
			for _, v := range group {
				cmd.Print(name.Render(v.Name), "=")
				if v.Value != "" {
					cmd.Print(style.Fg(style.Green)(v.Value))
				} else {
					cmd.Print(style.Fg(style.Red)("unset"))
				}
				if showKeys && v.Key != "" {
					cmd.Print(style.Faint("  (" + v.Key + ")"))
				}
				cmd.Println()
			}
		}
	},
}
