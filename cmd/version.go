package cmd

import (
	"encoding/json"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"text/template"

	"github.com/projector-cli/projector/constant"
	"github.com/projector-cli/projector/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type buildInfo struct {
	App      string       `json:"app"`
	Version  string       `json:"version"`
	Revision string       `json:"revision"`
	BuiltAt  string       `json:"built_at"`
	BuiltBy  string       `json:"built_by"`
	Platform string       `json:"platform"`
	Engines  []enginePath `json:"engines"`
}

type enginePath struct {
	ID   string `json:"id"`
	Path string `json:"path,omitempty"`
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Display only the version string")
	versionCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	versionCmd.MarkFlagsMutuallyExclusive("short", "json")
}

var versionTemplate = template.Must(template.New("version").Funcs(template.FuncMap{
	"faint":   style.Faint,
	"bold":    style.Bold,
	"magenta": style.Fg(style.Purple),
	"red":     style.Fg(style.Red),
}).Parse(`{{ magenta "▇▇▇" }} {{ magenta .App }}

  {{ faint "Version" }}      {{ bold .Version }}
  {{ faint "Revision" }}     {{ bold .Revision }}
  {{ faint "Built" }}        {{ bold .BuiltAt }} {{ faint "by" }} {{ bold .BuiltBy }}
  {{ faint "Platform" }}     {{ bold .Platform }}
{{ range .Engines }}  {{ printf "%-12s" .ID | faint }} {{ if .Path }}{{ bold .Path }}{{ else }}{{ red "not found" }}{{ end }}
{{ end }}`))

// versionCmd displays the build metadata and the engine binaries it would run.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version and build metadata",
	Long:  "Display the application version, build revision, platform and the engine binaries found in PATH.",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(constant.Version)
			return
		}

		reg := newRegistry()
		info := buildInfo{
			App:      constant.Projector,
			Version:  constant.Version,
			Revision: constant.Revision,
			BuiltAt:  strings.TrimSpace(constant.BuiltAt),
			BuiltBy:  constant.BuiltBy,
			Platform: runtime.GOOS + "/" + runtime.GOARCH,
			Engines: lo.Map(reg.IDs(), func(id string, _ int) enginePath {
				b := reg.Get(id).MustGet()
				path, _ := exec.LookPath(b.Engine.Binary())
				return enginePath{ID: id, Path: path}
			}),
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			handleErr(enc.Encode(info))
			return
		}

		handleErr(versionTemplate.Execute(cmd.OutOrStdout(), info))
	},
}
