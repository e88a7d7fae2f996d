package cmd

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/projector-cli/projector/history"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// schemaTargets maps a command name to a value shaped like its --json output.
var schemaTargets = map[string]any{
	"probe":    []probeReport{},
	"backends": []descriptorView{},
	"history":  []*history.Entry{},
	"info":     map[string]any{},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

var schemaCmd = &cobra.Command{
	Use:       "schema [command]",
	Short:     "Print the JSON Schema of a command's --json output",
	Args:      cobra.ExactArgs(1),
	ValidArgs: lo.Keys(schemaTargets),
	Run: func(cmd *cobra.Command, args []string) {
		target, ok := schemaTargets[args[0]]
		if !ok {
			handleErr(fmt.Errorf("no schema for %q, try one of %s", args[0], strings.Join(lo.Keys(schemaTargets), ", ")))
		}

		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			if strings.EqualFold(t.Name(), "entry") {
				return "history." + t.Name()
			}
			return t.Name()
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		handleErr(encoder.Encode(reflector.Reflect(target)))
	},
}
