// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Engine binaries - explicit paths override the PATH lookup.
const (
	EngineMPlayerPath = "engine.mplayer.path"
	EngineMPVPath     = "engine.mpv.path"
)

// Backend selection - these keys steer the registry when several engines can play a reference.
const (
	PlayerDefault  = "player.default"
	PlayerExclude  = "player.exclude"
	PlayerRequire  = "player.require"
	PlayerDVDTitle = "player.dvd_title"
)

// Session tuning.
const (
	PlayerStopTimeout  = "player.stop_timeout"
	PlayerPollInterval = "player.poll_interval"
	PlayerSeekStep     = "player.seek_step"
)

// Audio output passed to the engine at spawn time.
const (
	AudioDriver      = "audio.driver"
	AudioChannels    = "audio.channels"
	AudioPassthrough = "audio.passthrough"
	AudioDelay       = "audio.delay"
)

// ALSA device names chosen by channel count.
const (
	AudioDeviceMono        = "audio.device.mono"
	AudioDeviceStereo      = "audio.device.stereo"
	AudioDeviceSurround40  = "audio.device.surround40"
	AudioDeviceSurround51  = "audio.device.surround51"
	AudioDevicePassthrough = "audio.device.passthrough"
)

// Playback history.
const (
	HistorySave    = "history.save"
	HistoryResume  = "history.resume"
	HistorySuggest = "history.suggest"
)

// Capability cache.
const (
	CachePersist = "cache.persist"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
	LogsKeep  = "logs.keep"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored = "cli.colored"
	CliTUI     = "cli.tui"
)
