package constant

// Engine identifiers. They double as registry keys and default binary names.
const (
	MPlayer = "mplayer"
	MPV     = "mpv"
)

// Capability probe arguments understood by mplayer.
const (
	MPlayerHelpArgs    = "-vf help -af help -vo help -ao help"
	MPlayerKeylistArgs = "-input keylist"
)

// MPlayerIdentifyArgs run a metadata-only pass without opening any output device.
const MPlayerIdentifyArgs = "-nolirc -nojoystick -nomouseinput -identify -vo null -ao null -frames 0"

// MPlayerSlaveArgs are prepended to every playback invocation.
const MPlayerSlaveArgs = "-v -slave -osdlevel 0 -nolirc -nojoystick -nomouseinput -nodouble -fixed-vo -identify -framedrop"
