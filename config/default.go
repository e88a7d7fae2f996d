package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/projector-cli/projector/constant"
	"github.com/projector-cli/projector/key"
	"github.com/projector-cli/projector/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Projector + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.TypeName(),
	})
}

// TypeName returns the name of the field's underlying value type.
func (f *Field) TypeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}

// Parse converts raw CLI input into a value of the field's type.
func (f *Field) Parse(raw []string) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no value for %s", f.Key)
	}

	switch f.Value.(type) {
	case string:
		return raw[0], nil
	case int:
		v, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, fmt.Errorf("invalid integer value: %s", raw[0])
		}
		return v, nil
	case float64:
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw[0], ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value: %s", raw[0])
		}
		return v, nil
	case bool:
		v, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fmt.Errorf("invalid boolean value: %s", raw[0])
		}
		return v, nil
	case []string:
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported type for %s", f.Key)
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func register(k string, v any, desc string) {
	if _, exists := Default[k]; exists {
		panic("duplicate config key: " + k)
	}
	Default[k] = Field{Key: k, Value: v, Description: desc}
	EnvExposed = append(EnvExposed, k)
}

func init() {
	register(key.EngineMPlayerPath, "", "Path to the mplayer binary.\nEmpty means look it up in PATH")
	register(key.EngineMPVPath, "", "Path to the mpv binary.\nEmpty means look it up in PATH")

	register(key.PlayerDefault, constant.MPlayer, "Preferred backend when several can play a reference")
	register(key.PlayerExclude, []string{}, "Backends never selected automatically")
	register(key.PlayerRequire, []string{}, "Capabilities every selected backend must have.\nAvailable: osd, canvas, dvd-menus, deinterlace, dynamic-filters")
	register(key.PlayerDVDTitle, 1, "Disc title played when a dvd reference names none")
	register(key.PlayerStopTimeout, "3s", "Grace period between quit and a forced kill of the engine")
	register(key.PlayerPollInterval, "20ms", "Interval of the shared frame and overlay buffer poll")
	register(key.PlayerSeekStep, 10, "Seconds skipped by a relative seek in the playback view")

	register(key.AudioDriver, "alsa", "Audio output driver handed to the engine")
	register(key.AudioChannels, 2, "Number of output channels")
	register(key.AudioPassthrough, false, "Pass compressed AC3/DTS streams to the receiver")
	register(key.AudioDelay, 0.0, "Audio delay in seconds. Positive values defer audio")
	register(key.AudioDeviceMono, "", "ALSA device for mono streams")
	register(key.AudioDeviceStereo, "", "ALSA device for stereo streams")
	register(key.AudioDeviceSurround40, "", "ALSA device for streams with up to four channels")
	register(key.AudioDeviceSurround51, "", "ALSA device for streams with up to six channels")
	register(key.AudioDevicePassthrough, "", "ALSA device for passthrough streams")

	register(key.HistorySave, true, "Remember the position of every played reference")
	register(key.HistoryResume, true, "Continue a reference from its saved position")
	register(key.HistorySuggest, true, "Suggest previously played references for unknown input")

	register(key.CachePersist, true, "Persist engine capability probes between runs.\nEntries are invalidated when the engine binary changes")

	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.LogsKeep, 14, "Days daily log files are kept. 0 keeps them forever")

	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliTUI, true, "Show the interactive playback view when stdout is a terminal")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(style.Purple),
	"blue":     style.Fg(style.Blue),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(style.Green)(b)
			}
			return style.Fg(style.Red)(b)
		case string:
			return style.Fg(style.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
