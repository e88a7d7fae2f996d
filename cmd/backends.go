package cmd

import (
	"encoding/json"
	"strings"

	"github.com/projector-cli/projector/backend"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(backendsCmd)
	backendsCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON array")

	backendsCmd.AddCommand(backendsSelectCmd)
}

type descriptorView struct {
	ID           string               `json:"id"`
	Available    bool                 `json:"available"`
	Capabilities []backend.Capability `json:"capabilities"`
	Schemes      []string             `json:"schemes"`
	Extensions   []string             `json:"extensions"`
}

var backendsCmd = &cobra.Command{
	Use:     "backends",
	Short:   "List the registered engines and what they support",
	Aliases: []string{"engines"},
	Run: func(cmd *cobra.Command, args []string) {
		reg := newRegistry()

		views := lo.Map(reg.Descriptors(commandContext(cmd)), func(d backend.Descriptor, _ int) descriptorView {
			return descriptorView{
				ID:           d.ID,
				Available:    len(d.Schemes) > 0,
				Capabilities: d.CapabilityList(),
				Schemes:      d.Schemes,
				Extensions:   d.Extensions,
			}
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(views))
			return
		}

		for _, v := range views {
			mark := style.Success
			if !v.Available {
				mark = style.Fail
			}

			caps := strings.Join(lo.Map(v.Capabilities, func(c backend.Capability, _ int) string { return string(c) }), ", ")
			cmd.Printf("%s %s %s\n", mark, style.Bold(v.ID), style.Fg(style.Green)(caps))
			if v.Available {
				cmd.Printf("  %s %s\n", style.Faint("schemes"), strings.Join(v.Schemes, " "))
				cmd.Printf("  %s %s\n", style.Faint("extensions"), strings.Join(v.Extensions, " "))
			}
		}
	},
}

var backendsSelectCmd = &cobra.Command{
	Use:   "select [reference]",
	Short: "Show which engine would play a reference",
	Long:  "Show which engine would play a reference given the configured preference, exclusions and required capabilities.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg := newRegistry()

		var ref mrl.Ref
		if len(args) > 0 {
			var err error
			ref, err = mrl.Parse(args[0])
			handleErr(err)
		}

		candidates := playable(commandContext(cmd), reg, ref)
		if len(candidates) == 0 {
			cmd.Printf("%s no engine fits\n", style.Fail)
			return
		}

		cmd.Printf("%s %s\n", style.Success, style.Bold(candidates[0]))
		for _, id := range candidates[1:] {
			cmd.Printf("  %s %s\n", style.Arrow, id)
		}
	},
}
