package protocol

import (
	"regexp"
	"strings"

	"github.com/projector-cli/projector/capability"
	"github.com/projector-cli/projector/version"
)

// Section is a table of an engine's help output.
type Section int

const (
	NoSection Section = iota
	VideoFilters
	VideoDrivers
	AudioFilters
	AudioDrivers
)

// Dialect describes how an engine lays out its help output.
type Dialect struct {
	// Headers maps a line prefix to the section that follows it.
	Headers map[string]Section
	// Banner is the prefix of the line carrying the engine version.
	Banner string
	// Filter and Driver match table rows after trimming; group 1 is the name, group 2 the description.
	Filter, Driver *regexp.Regexp
}

var (
	keyPattern = regexp.MustCompile(`^(\w+)$`)

	mplayerDialect = Dialect{
		Headers: map[string]Section{
			"Available video filters": VideoFilters,
			"Available video output":  VideoDrivers,
			"Available audio filters": AudioFilters,
			"Available audio output":  AudioDrivers,
		},
		Banner: "MPlayer ",
		Filter: regexp.MustCompile(`^(\w+)\s+:\s+(.*)$`),
		Driver: regexp.MustCompile(`^(\w+)\s+(.*)$`),
	}

	mpvDialect = Dialect{
		Headers: map[string]Section{
			"Available libavfilter filters": VideoFilters,
			"Available mpv-specific filters": VideoFilters,
			"Available video outputs":       VideoDrivers,
			"Available audio outputs":       AudioDrivers,
		},
		Banner: "mpv ",
		Filter: regexp.MustCompile(`^([\w-]+)(?:\s+(.*))?$`),
		Driver: regexp.MustCompile(`^([\w-]+)\s+(.*)$`),
	}
)

// MPlayerDialect is the layout of "mplayer -vf help -af help -vo help -ao help".
func MPlayerDialect() Dialect { return mplayerDialect }

// MPVDialect is the layout of "mpv --vo=help" and friends.
func MPVDialect() Dialect { return mpvDialect }

// InfoScanner accumulates capability.Info from help output one line at a time.
// The current section is the only state carried between lines.
type InfoScanner struct {
	dialect Dialect
	section Section
	info    capability.Info
}

// NewInfoScanner returns a scanner for the given dialect.
func NewInfoScanner(d Dialect) *InfoScanner {
	return &InfoScanner{dialect: d, info: capability.NewInfo()}
}

// Scan consumes one line of help output.
func (s *InfoScanner) Scan(line string) {
	if s.dialect.Banner != "" && strings.HasPrefix(line, s.dialect.Banner) {
		fields := strings.Fields(line)
		if len(fields) > 1 && s.info.Version == "" {
			s.info.Version = version.Extract(fields[1]).OrElse(fields[1])
		}
		return
	}

	for header, section := range s.dialect.Headers {
		if strings.HasPrefix(line, header) {
			s.section = section
			return
		}
	}

	var pattern *regexp.Regexp
	var table map[string]string
	switch s.section {
	case VideoFilters:
		pattern, table = s.dialect.Filter, s.info.VideoFilters
	case AudioFilters:
		pattern, table = s.dialect.Filter, s.info.AudioFilters
	case VideoDrivers:
		pattern, table = s.dialect.Driver, s.info.VideoDrivers
	case AudioDrivers:
		pattern, table = s.dialect.Driver, s.info.AudioDrivers
	default:
		return
	}

	m := pattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return
	}
	desc := ""
	if len(m) > 2 {
		desc = m[2]
	}
	table[m[1]] = desc
}

// ScanKey consumes one line of a key list such as "mplayer -input keylist".
func (s *InfoScanner) ScanKey(line string) {
	if m := keyPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
		s.info.Keylist = append(s.info.Keylist, m[1])
	}
}

// Section reports which table the next row would land in.
func (s *InfoScanner) Section() Section {
	return s.section
}

// Info returns what was collected so far.
func (s *InfoScanner) Info() capability.Info {
	return s.info
}
