package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/projector-cli/projector/backend"
	"github.com/projector-cli/projector/key"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const maxChannels = 8

// Validate checks the values engines and sessions are built from.
// Every problem is reported, not only the first.
func Validate() error {
	var errs []error

	for _, k := range []string{key.PlayerStopTimeout, key.PlayerPollInterval} {
		d, err := cast.ToDurationE(viper.Get(k))
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		case d <= 0:
			errs = append(errs, fmt.Errorf("%s: must be positive, got %s", k, d))
		case k == key.PlayerPollInterval && d > time.Second:
			errs = append(errs, fmt.Errorf("%s: %s is too slow to hand frames over", k, d))
		}
	}

	if n := viper.GetInt(key.AudioChannels); n < 1 || n > maxChannels {
		errs = append(errs, fmt.Errorf("%s: expected 1 to %d, got %d", key.AudioChannels, maxChannels, n))
	}

	if step := viper.GetFloat64(key.PlayerSeekStep); step <= 0 {
		errs = append(errs, fmt.Errorf("%s: must be positive, got %v", key.PlayerSeekStep, step))
	}

	if days := viper.GetInt(key.LogsKeep); days < 0 {
		errs = append(errs, fmt.Errorf("%s: must not be negative, got %d", key.LogsKeep, days))
	}

	known := lo.Map(backend.AllCapabilities, func(c backend.Capability, _ int) string { return string(c) })
	for _, c := range viper.GetStringSlice(key.PlayerRequire) {
		if c = strings.TrimSpace(c); !lo.Contains(known, c) {
			errs = append(errs, fmt.Errorf("%s: unknown capability %q", key.PlayerRequire, c))
		}
	}

	return errors.Join(errs...)
}
