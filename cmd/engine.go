package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/projector-cli/projector/backend"
	"github.com/projector-cli/projector/capability"
	"github.com/projector-cli/projector/config"
	"github.com/projector-cli/projector/filesystem"
	"github.com/projector-cli/projector/key"
	"github.com/projector-cli/projector/mrl"
	"github.com/projector-cli/projector/player"
	"github.com/projector-cli/projector/query"
	"github.com/projector-cli/projector/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const maxSuggestions = 3

func newCache() capability.Cache {
	if viper.GetBool(key.CachePersist) {
		return capability.NewPersistent(where.Capabilities())
	}
	return capability.NewMemory()
}

func newRegistry() *backend.Registry[*player.Backend] {
	handleErr(config.Validate())

	reg := backend.NewRegistry[*player.Backend]()
	handleErr(player.RegisterDefaults(
		reg,
		newCache(),
		viper.GetString(key.EngineMPlayerPath),
		viper.GetString(key.EngineMPVPath),
	))
	return reg
}

func completionEngines(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return newRegistry().IDs(), cobra.ShellCompDirectiveNoFileComp
}

// commandContext is the context of cmd, which is unset when a command is run directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// selectOptions turns the configured preferences into registry selection options.
func selectOptions(ref mrl.Ref, forced string) []backend.SelectOption {
	opts := []backend.SelectOption{
		backend.WithReference(ref),
		backend.WithPreferred(viper.GetString(key.PlayerDefault)),
		backend.WithExclude(viper.GetStringSlice(key.PlayerExclude)...),
		backend.WithCapabilities(lo.Map(viper.GetStringSlice(key.PlayerRequire), func(c string, _ int) backend.Capability {
			return backend.Capability(strings.TrimSpace(c))
		})...),
	}

	if forced != "" {
		opts = append(opts, backend.WithForced(forced))
	}
	return opts
}

// playable lists the engines that could play ref, best first.
func playable(ctx context.Context, reg *backend.Registry[*player.Backend], ref mrl.Ref) []string {
	var ids []string
	exclude := []string{}

	for {
		opts := append(selectOptions(ref, ""), backend.WithExclude(exclude...))
		id, ok := reg.Select(ctx, opts...).Get()
		if !ok || lo.Contains(ids, id) {
			return ids
		}
		ids = append(ids, id)
		exclude = append(exclude, id)
	}
}

func sessionOptions() []player.Option {
	return []player.Option{
		player.WithStopTimeout(viper.GetDuration(key.PlayerStopTimeout)),
		player.WithPollInterval(viper.GetDuration(key.PlayerPollInterval)),
		player.WithAudioDelay(viper.GetFloat64(key.AudioDelay)),
		player.WithAudio(player.Audio{
			Driver:      viper.GetString(key.AudioDriver),
			Channels:    viper.GetInt(key.AudioChannels),
			Passthrough: viper.GetBool(key.AudioPassthrough),
			Devices: player.AudioDevices{
				Mono:        viper.GetString(key.AudioDeviceMono),
				Stereo:      viper.GetString(key.AudioDeviceStereo),
				Surround40:  viper.GetString(key.AudioDeviceSurround40),
				Surround51:  viper.GetString(key.AudioDeviceSurround51),
				Passthrough: viper.GetString(key.AudioDevicePassthrough),
			},
		}),
	}
}

// resolveRef parses raw and checks that a file reference exists.
// Disc references without a title get the configured one.
func resolveRef(raw string) (mrl.Ref, error) {
	ref, err := mrl.Parse(raw)
	if err != nil {
		return mrl.Ref{}, err
	}

	if ref.IsDisc() && ref.Title().IsAbsent() {
		ref = ref.WithTitle(viper.GetInt(key.PlayerDVDTitle))
	}

	if ref.Scheme() != mrl.File {
		return ref, nil
	}

	if exists, _ := filesystem.API().Exists(ref.Path()); !exists {
		err := fmt.Errorf("%w: %s", player.ErrMediaNotFound, ref.Path())
		if suggestions := suggestRefs(ref.Path()); len(suggestions) > 0 {
			err = fmt.Errorf("%w, did you mean %s?", err, strings.Join(suggestions, " or "))
		}
		return mrl.Ref{}, err
	}

	return ref, nil
}

// suggestRefs proposes references close to a missing path: files next to it
// first, then previously played references.
func suggestRefs(path string) []string {
	var suggestions []string

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	if names, err := filesystem.API().ReadDir(dir); err == nil {
		files := lo.FilterMap(names, func(info os.FileInfo, _ int) (string, bool) {
			return info.Name(), !info.IsDir()
		})

		ranks := fuzzy.RankFindNormalizedFold(base, files)
		sort.Sort(ranks)
		for _, r := range ranks {
			suggestions = append(suggestions, filepath.Join(dir, r.Target))
		}
	}

	suggestions = append(suggestions, query.SuggestMany(base)...)
	return lo.Slice(lo.Uniq(suggestions), 0, maxSuggestions)
}
