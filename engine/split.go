package engine

import (
	"bufio"
	"bytes"
)

// maxLine bounds a single line of engine output.
const maxLine = 1 << 20

// scanLines splits on both '\n' and '\r'. Engines redraw their status line with
// a bare carriage return, and every redraw is a separate line for the parser.
// A "\r\n" pair yields an empty token, which readers skip.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// truncating cuts lines longer than limit to their first limit bytes and
// drops the rest up to the next separator, so a runaway line never stops the
// reader. The scanner buffer must allow at least limit bytes.
func truncating(split bufio.SplitFunc, limit int) bufio.SplitFunc {
	var skipping bool
	return func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := split(data, atEOF)
		if err != nil || advance > 0 || token != nil {
			if skipping && advance > 0 {
				skipping = false
				return advance, nil, err
			}
			return advance, token, err
		}

		if len(data) < limit {
			return 0, nil, nil
		}
		if skipping {
			return len(data), nil, nil
		}
		skipping = true
		return len(data), data[:limit], nil
	}
}
