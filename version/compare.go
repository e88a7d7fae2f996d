// Package version compares semantic versions reported by the application and by playback engines.
package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Compare performs a semantic comparison between two version strings.
// Returns 1 if a > b, -1 if a < b, and 0 if equal.
func Compare(a, b string) (int, error) {
	type version struct {
		major, minor, patch int
	}

	parse := func(s string) (version, error) {
		var v version
		_, err := fmt.Sscanf(strings.TrimPrefix(s, "v"), "%d.%d.%d", &v.major, &v.minor, &v.patch)
		return v, err
	}

	av, err := parse(a)
	if err != nil {
		return 0, err
	}

	bv, err := parse(b)
	if err != nil {
		return 0, err
	}

	for _, pair := range []lo.Tuple2[int, int]{
		{A: av.major, B: bv.major},
		{A: av.minor, B: bv.minor},
		{A: av.patch, B: bv.patch},
	} {
		if pair.A > pair.B {
			return 1, nil
		}

		if pair.A < pair.B {
			return -1, nil
		}
	}

	return 0, nil
}

var semverPattern = regexp.MustCompile(`v?(\d+)\.(\d+)(?:\.(\d+))?`)

// Extract finds the first dotted version inside an engine banner such as
// "mpv v0.36.0-git-1234" and normalizes it to major.minor.patch.
func Extract(banner string) mo.Option[string] {
	m := semverPattern.FindStringSubmatch(banner)
	if m == nil {
		return mo.None[string]()
	}

	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	return mo.Some(fmt.Sprintf("%s.%s.%s", m[1], m[2], patch))
}

// AtLeast reports whether have is equal to or newer than want.
// Unparseable versions never satisfy the requirement.
func AtLeast(have, want string) bool {
	c, err := Compare(have, want)
	return err == nil && c >= 0
}
