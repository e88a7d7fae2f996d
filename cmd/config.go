package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/projector-cli/projector/config"
	"github.com/projector-cli/projector/filesystem"
	"github.com/projector-cli/projector/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

// errUnknownKey suggests the closest known key.
func errUnknownKey(key string) error {
	closest := lo.MinBy(lo.Keys(config.Default), func(a, b string) bool {
		return levenshtein.Distance(key, a) < levenshtein.Distance(key, b)
	})
	return fmt.Errorf("unknown key %s, did you mean %s?", style.Fg(style.Red)(key), style.Fg(style.Yellow)(closest))
}

func completionConfigKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Keys(config.Default), cobra.ShellCompDirectiveNoFileComp
}

// knownKey returns the key given as the first argument or through --key.
func knownKey(cmd *cobra.Command, args []string) string {
	key := lo.Must(cmd.Flags().GetString("key"))
	if len(args) > 0 {
		key = args[0]
	}
	if key == "" {
		handleErr(errors.New("key is required as an argument or through --key"))
	}
	if _, ok := config.Default[key]; !ok {
		handleErr(errUnknownKey(key))
	}
	return key
}

// persist validates the in-memory configuration before it reaches disk.
// On a validation failure the previous values are restored.
func persist(previous map[string]any) {
	if err := config.Validate(); err != nil {
		for key, value := range previous {
			viper.Set(key, value)
		}
		handleErr(err)
	}

	err := viper.WriteConfig()
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		err = viper.SafeWriteConfig()
	}
	handleErr(err)
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.SetOut(os.Stdout)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage engine, audio and playback settings",
}

func init() {
	configCmd.AddCommand(configInfoCmd)
	configInfoCmd.Flags().StringSliceP("key", "k", nil, "Only describe these keys")
	configInfoCmd.Flags().StringP("section", "s", "", "Only describe keys of a section, e.g. audio")
	configInfoCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	configInfoCmd.MarkFlagsMutuallyExclusive("key", "section")
	_ = configInfoCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)
	_ = configInfoCmd.RegisterFlagCompletionFunc("section", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return configSections(), cobra.ShellCompDirectiveNoFileComp
	})
}

func configSections() []string {
	sections := lo.Uniq(lo.Map(lo.Keys(config.Default), func(key string, _ int) string {
		section, _, _ := strings.Cut(key, ".")
		return section
	}))
	slices.Sort(sections)
	return sections
}

var configInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe configuration keys, their defaults and current values",
	Run: func(cmd *cobra.Command, args []string) {
		keys := lo.Must(cmd.Flags().GetStringSlice("key"))
		section := lo.Must(cmd.Flags().GetString("section"))

		fields := lo.Values(config.Default)
		switch {
		case len(keys) > 0:
			fields = lo.Map(keys, func(key string, _ int) config.Field {
				field, ok := config.Default[key]
				if !ok {
					handleErr(errUnknownKey(key))
				}
				return field
			})
		case section != "":
			if !lo.Contains(configSections(), section) {
				handleErr(fmt.Errorf("unknown section %q, available: %s", section, strings.Join(configSections(), ", ")))
			}
			fields = lo.Filter(fields, func(f config.Field, _ int) bool {
				return strings.HasPrefix(f.Key, section+".")
			})
		}
		slices.SortFunc(fields, func(a, b config.Field) int { return strings.Compare(a.Key, b.Key) })

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(fields))
			return
		}

		cmd.Println(strings.Join(lo.Map(fields, func(f config.Field, _ int) string { return f.Pretty() }), "\n\n"))
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configSetCmd.Flags().StringP("key", "k", "", "The key to update")
	_ = configSetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] <value...>",
	Short: "Update a configuration key",
	Long: `Update a configuration key and write the config file.
List keys take several values, e.g. projector config set player.exclude mpv mplayer.
The whole configuration is validated before anything is written.`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		key := knownKey(cmd, args)
		if !cmd.Flags().Changed("key") {
			args = args[1:]
		}
		if len(args) == 0 {
			handleErr(fmt.Errorf("no value given for %s", key))
		}

		field := config.Default[key]
		v, err := field.Parse(args)
		handleErr(err)

		previous := map[string]any{key: viper.Get(key)}
		viper.Set(key, v)
		persist(previous)

		cmd.Printf("%s set %s to %s\n", style.Success, style.Fg(style.Purple)(key), style.Fg(style.Yellow)(fmt.Sprint(v)))
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configGetCmd.Flags().StringP("key", "k", "", "The key to read")
	_ = configGetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys)
}

var configGetCmd = &cobra.Command{
	Use:               "get [key]",
	Short:             "Print the current value of a configuration key",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(viper.Get(knownKey(cmd, args)))
	},
}

func init() {
	configCmd.AddCommand(configWriteCmd)
	configWriteCmd.Flags().BoolP("force", "f", false, "Overwrite an existing config file")
}

var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the current configuration to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := config.File()
		if lo.Must(cmd.Flags().GetBool("force")) {
			if err := filesystem.API().Remove(path); err != nil && !os.IsNotExist(err) {
				handleErr(err)
			}
		}

		handleErr(config.Validate())
		handleErr(viper.SafeWriteConfig())
		cmd.Printf("%s wrote config to %s\n", style.Success, path)
	},
}

func init() {
	configCmd.AddCommand(configDeleteCmd)
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Remove the config file",
	Aliases: []string{"remove"},
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(filesystem.API().Remove(config.File()))
		cmd.Printf("%s deleted config\n", style.Success)
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)
	configResetCmd.Flags().BoolP("all", "a", false, "Reset every key")
}

var configResetCmd = &cobra.Command{
	Use:               "reset [key...]",
	Short:             "Restore configuration keys to their defaults",
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		all := lo.Must(cmd.Flags().GetBool("all"))
		switch {
		case all && len(args) > 0:
			handleErr(errors.New("--all takes no keys"))
		case !all && len(args) == 0:
			handleErr(errors.New("name the keys to reset or pass --all"))
		case all:
			args = lo.Keys(config.Default)
		}

		previous := make(map[string]any, len(args))
		for _, key := range args {
			field, ok := config.Default[key]
			if !ok {
				handleErr(errUnknownKey(key))
			}
			previous[key] = viper.Get(key)
			viper.Set(key, field.Value)
		}
		persist(previous)

		if all {
			cmd.Printf("%s reset all config values\n", style.Success)
			return
		}
		for _, key := range args {
			cmd.Printf("%s reset %s to %s\n", style.Success, style.Fg(style.Purple)(key), style.Fg(style.Yellow)(fmt.Sprint(config.Default[key].Value)))
		}
	},
}
