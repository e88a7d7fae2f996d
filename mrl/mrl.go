// Package mrl parses media reference locators: a scheme, a path and an optional sub-index such as a disc title.
package mrl

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/mo"
)

// Well known schemes.
const (
	File  = "file"
	DVD   = "dvd"
	VCD   = "vcd"
	HTTP  = "http"
	HTTPS = "https"
)

var (
	ErrEmpty   = errors.New("empty media reference")
	ErrControl = errors.New("media reference contains control characters")
	ErrFlag    = errors.New("media reference must not start with '-'")
)

// Ref is an immutable, parsed media reference.
type Ref struct {
	scheme string
	path   string
	title  mo.Option[int]
}

var (
	schemePattern = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.-]*):`)
	titlePattern  = regexp.MustCompile(`^(.*?)(/(\d+))?$`)
)

// Parse validates raw and splits it into its parts.
// A bare path is a file reference. Disc references take the form
// dvd:[device-or-iso][/title], e.g. dvd:///2 or dvd:/media/movie.iso/3.
func Parse(raw string) (Ref, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ref{}, ErrEmpty
	}

	if strings.ContainsAny(s, "\x00\n\r") {
		return Ref{}, ErrControl
	}

	if strings.HasPrefix(s, "-") {
		return Ref{}, ErrFlag
	}

	m := schemePattern.FindStringSubmatch(s)
	// one-letter schemes are drive letters on windows
	if m == nil || len(m[1]) == 1 {
		return Ref{scheme: File, path: filepath.Clean(s)}, nil
	}

	scheme := strings.ToLower(m[1])
	rest := s[len(m[0]):]

	switch scheme {
	case File:
		u, err := url.Parse(s)
		if err != nil || u.Path == "" {
			return Ref{scheme: File, path: filepath.Clean(strings.TrimPrefix(rest, "//"))}, nil
		}
		return Ref{scheme: File, path: filepath.Clean(u.Path)}, nil
	case DVD, VCD:
		return parseDisc(scheme, rest)
	default:
		if _, err := url.Parse(s); err != nil {
			return Ref{}, fmt.Errorf("invalid url: %w", err)
		}
		return Ref{scheme: scheme, path: s}, nil
	}
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(raw string) Ref {
	r, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return r
}

func parseDisc(scheme, rest string) (Ref, error) {
	rest = strings.TrimPrefix(rest, "//")

	m := titlePattern.FindStringSubmatch(rest)
	ref := Ref{scheme: scheme, path: m[1], title: mo.None[int]()}
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil {
			return Ref{}, fmt.Errorf("invalid disc title %q: %w", m[3], err)
		}
		ref.title = mo.Some(n)
	}

	if strings.Trim(ref.path, "/") == "" {
		ref.path = ""
	}

	return ref, nil
}

// Scheme returns the lower-cased scheme.
func (r Ref) Scheme() string {
	return r.scheme
}

// Path returns the file path, disc device/image, or full URL for network schemes.
func (r Ref) Path() string {
	return r.path
}

// Title returns the disc title, if any.
func (r Ref) Title() mo.Option[int] {
	return r.title
}

// Ext returns the lower-cased extension without the dot.
func (r Ref) Ext() string {
	p := r.path
	if u, err := url.Parse(p); err == nil && u.Scheme != "" {
		p = u.Path
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(p), "."))
}

// IsZero reports whether r was never parsed.
func (r Ref) IsZero() bool {
	return r.scheme == ""
}

// IsDisc reports whether r refers to an optical disc.
func (r Ref) IsDisc() bool {
	return r.scheme == DVD || r.scheme == VCD
}

// Device returns the disc device or image path, when one was given.
func (r Ref) Device() mo.Option[string] {
	if !r.IsDisc() || r.path == "" {
		return mo.None[string]()
	}
	return mo.Some(r.path)
}

// Target is what an engine receives on its command line.
func (r Ref) Target() string {
	switch {
	case r.IsDisc():
		t := r.scheme + "://"
		if n, ok := r.title.Get(); ok {
			t += strconv.Itoa(n)
		}
		return t
	default:
		return r.path
	}
}

// WithTitle returns a copy of r pointing at another disc title.
func (r Ref) WithTitle(n int) Ref {
	r.title = mo.Some(n)
	return r
}

func (r Ref) String() string {
	switch {
	case r.scheme == File:
		return "file://" + filepath.ToSlash(r.path)
	case r.IsDisc():
		s := r.scheme + "://" + r.path
		if n, ok := r.title.Get(); ok {
			s += "/" + strconv.Itoa(n)
		}
		return s
	default:
		return r.path
	}
}
