package cmd

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/projector-cli/projector/backend"
	"github.com/projector-cli/projector/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type probeReport struct {
	Engine       string               `json:"engine"`
	Path         string               `json:"path,omitempty"`
	Version      string               `json:"version,omitempty"`
	Tables       map[string]int       `json:"tables,omitempty"`
	Capabilities []backend.Capability `json:"capabilities"`
	Error        string               `json:"error,omitempty"`
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON array")
}

var probeCmd = &cobra.Command{
	Use:               "probe [engine...]",
	Short:             "Describe the installed engine builds",
	Long:              "Run every engine binary once, or reuse the cached description of its build, and report what it supports.",
	ValidArgsFunction: completionEngines,
	Run: func(cmd *cobra.Command, args []string) {
		reg := newRegistry()

		ids := reg.IDs()
		if len(args) > 0 {
			for _, id := range args {
				if !reg.Has(id) {
					handleErr(fmt.Errorf("unknown engine %q, available: %s", id, strings.Join(ids, ", ")))
				}
			}
			ids = args
		}

		reports := make([]probeReport, len(ids))
		g, ctx := errgroup.WithContext(commandContext(cmd))
		for i, id := range ids {
			i, id := i, id // per-iteration copy (go.mod targets go 1.21)
			g.Go(func() error {
				b := reg.Get(id).MustGet()
				report := probeReport{Engine: id}
				defer func() { reports[i] = report }()

				path, err := exec.LookPath(b.Engine.Binary())
				if err != nil {
					report.Error = err.Error()
					return nil
				}
				report.Path = path

				info, err := b.Fetcher.Fetch(ctx, path)
				if err != nil {
					report.Error = err.Error()
					return nil
				}

				report.Version = info.Version
				report.Tables = info.Summary()
				report.Capabilities = b.Engine.Describe(info).CapabilityList()
				return nil
			})
		}
		handleErr(g.Wait())

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(reports))
			return
		}

		for i, r := range reports {
			printProbeReport(cmd, r)
			if i < len(reports)-1 {
				cmd.Println()
			}
		}
	},
}

func printProbeReport(cmd *cobra.Command, r probeReport) {
	if r.Error != "" {
		cmd.Printf("%s %s\n  %s\n", style.ErrorTitle(r.Engine), style.Fail, r.Error)
		return
	}

	cmd.Printf("%s %s\n", style.Title(r.Engine), style.Faint(r.Path))
	if r.Version != "" {
		cmd.Printf("  %s %s\n", style.Faint("version"), style.Bold(r.Version))
	}

	tables := lo.Keys(r.Tables)
	sort.Strings(tables)
	for _, t := range tables {
		cmd.Printf("  %s %d\n", style.Faint(t), r.Tables[t])
	}

	caps := lo.Map(r.Capabilities, func(c backend.Capability, _ int) string { return string(c) })
	if len(caps) == 0 {
		caps = []string{"none"}
	}
	cmd.Printf("  %s %s\n", style.Faint("capabilities"), style.Fg(style.Green)(strings.Join(caps, ", ")))
}

