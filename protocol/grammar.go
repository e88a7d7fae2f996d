package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Rule claims a line and turns it into an Event.
type Rule struct {
	Name  string
	Match func(line string) (Event, bool)
}

// Grammar is an ordered rule table.
type Grammar []Rule

// Classify runs line through the rules in order.
// A rule that panics on malformed input is treated as not matching.
func (g Grammar) Classify(line string) Event {
	for _, rule := range g {
		if ev, ok := safeMatch(rule, line); ok {
			ev.Line = line
			return ev
		}
	}
	return Event{Kind: Diagnostic, Line: line}
}

// Names lists the rule names in evaluation order.
func (g Grammar) Names() []string {
	names := make([]string, len(g))
	for i, r := range g {
		names[i] = r.Name
	}
	return names
}

func safeMatch(rule Rule, line string) (ev Event, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ev, ok = Event{}, false
		}
	}()
	return rule.Match(line)
}

// prefix builds a rule matching lines that start with p.
func prefix(name, p string, kind Kind) Rule {
	return Rule{
		Name: name,
		Match: func(line string) (Event, bool) {
			if strings.HasPrefix(line, p) {
				return Event{Kind: kind}, true
			}
			return Event{}, false
		},
	}
}

// ParseFloat parses a decimal number that may use a comma as decimal separator.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}

// infoField maps an identification key to a stream-info field and its parser.
type infoField struct {
	name  string
	parse func(string) (any, error)
}

func asString(s string) (any, error) { return s, nil }

func asInt(s string) (any, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return v, nil
}

func asFloat(s string) (any, error) {
	v, err := ParseFloat(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// identifyFields is the fixed ID_<KEY> table shared by every engine dialect.
var identifyFields = map[string]infoField{
	"VIDEO_FORMAT":  {FieldVideoFourCC, asString},
	"VIDEO_BITRATE": {FieldVideoBitrate, asInt},
	"VIDEO_WIDTH":   {FieldWidth, asInt},
	"VIDEO_HEIGHT":  {FieldHeight, asInt},
	"VIDEO_FPS":     {FieldFPS, asFloat},
	"VIDEO_ASPECT":  {FieldAspect, asFloat},
	"AUDIO_FORMAT":  {FieldAudioFourCC, asString},
	"AUDIO_CODEC":   {FieldAudioCodec, asString},
	"AUDIO_BITRATE": {FieldAudioBitrate, asInt},
	"AUDIO_NCH":     {FieldChannels, asInt},
	"LENGTH":        {FieldLength, asFloat},
	"FILENAME":      {FieldFilename, asString},
}

// identifyRule claims every ID_<KEY>=<value> line.
// Unknown keys and unparseable values are claimed as diagnostics so no later rule sees them.
func identifyRule() Rule {
	return Rule{
		Name: "identify",
		Match: func(line string) (Event, bool) {
			if !strings.HasPrefix(line, "ID_") {
				return Event{}, false
			}

			k, v, found := strings.Cut(strings.TrimRight(line[3:], "\r\n"), "=")
			if !found {
				return Event{}, false
			}

			field, known := identifyFields[k]
			if !known {
				return Event{Kind: Diagnostic}, true
			}

			value, err := field.parse(v)
			if err != nil {
				return Event{Kind: Diagnostic}, true
			}

			return Event{Kind: Info, Key: field.name, Value: value}, true
		},
	}
}

func (e Event) String() string {
	switch e.Kind {
	case Tick:
		return fmt.Sprintf("tick %.3f", e.Position)
	case Info:
		return fmt.Sprintf("info %s=%v", e.Key, e.Value)
	case Geometry, OverlayReady:
		return fmt.Sprintf("%s %dx%d", e.Kind, e.Width, e.Height)
	default:
		return e.Kind.String()
	}
}
