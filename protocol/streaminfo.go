package protocol

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// Stream-info field names.
const (
	FieldVideoFourCC  = "vfourcc"
	FieldVideoBitrate = "vbitrate"
	FieldWidth        = "width"
	FieldHeight       = "height"
	FieldFPS          = "fps"
	FieldAspect       = "aspect"
	FieldAudioFourCC  = "afourcc"
	FieldAudioCodec   = "acodec"
	FieldAudioBitrate = "abitrate"
	FieldChannels     = "channels"
	FieldLength       = "length"
	FieldFilename     = "filename"
)

// StreamInfo is an immutable snapshot of stream metadata.
// Updates go through With, which returns a new value and leaves the receiver untouched.
type StreamInfo struct {
	fields map[string]any
}

// With returns a copy of s with key set to value.
func (s StreamInfo) With(key string, value any) StreamInfo {
	next := make(map[string]any, len(s.fields)+1)
	maps.Copy(next, s.fields)
	next[key] = value
	return StreamInfo{fields: next}
}

// Get returns the raw value of key.
func (s StreamInfo) Get(key string) (any, bool) {
	v, ok := s.fields[key]
	return v, ok
}

// Int returns key as an int, or 0.
func (s StreamInfo) Int(key string) int {
	switch v := s.fields[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Float returns key as a float64, or 0.
func (s StreamInfo) Float(key string) float64 {
	switch v := s.fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// String returns key as a string, or "".
func (s StreamInfo) String(key string) string {
	v, _ := s.fields[key].(string)
	return v
}

// Len reports the number of known fields.
func (s StreamInfo) Len() int {
	return len(s.fields)
}

// Keys lists the known fields in sorted order.
func (s StreamInfo) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of all fields.
func (s StreamInfo) Map() map[string]any {
	return maps.Clone(s.fields)
}

// Summary is a one-line description such as "720x576 · 25 fps · a52 6ch".
func (s StreamInfo) Summary() string {
	var parts []string

	if w, h := s.Int(FieldWidth), s.Int(FieldHeight); w > 0 && h > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", w, h))
	}
	if fps := s.Float(FieldFPS); fps > 0 {
		parts = append(parts, fmt.Sprintf("%.3g fps", fps))
	}

	var audio []string
	if codec := s.String(FieldAudioCodec); codec != "" {
		audio = append(audio, codec)
	}
	if n := s.Int(FieldChannels); n > 0 {
		audio = append(audio, fmt.Sprintf("%dch", n))
	}
	if len(audio) > 0 {
		parts = append(parts, strings.Join(audio, " "))
	}

	return strings.Join(parts, " · ")
}
