package protocol

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/projector-cli/projector/util"
)

var (
	tickPattern     = regexp.MustCompile(`^\s*[AV]:\s*(?P<pos>-?\d+(?:[.,]\d+)?)`)
	aspectPattern   = regexp.MustCompile(`^Movie-Aspect is (?P<aspect>\d+(?:[.,]\d+)?):1`)
	voPattern       = regexp.MustCompile(`=> (?P<w>\d+)x(?P<h>\d+)`)
	sizePattern     = regexp.MustCompile(`(?P<w>\d+)x(?P<h>\d+)`)
	inputConfigPath = regexp.MustCompile(`^Parsing input config file (?P<path>.+)$`)
)

// MPlayer returns the grammar of mplayer's slave-mode output.
func MPlayer() Grammar {
	return Grammar{
		{Name: "tick", Match: matchTick},
		identifyRule(),
		{Name: "pause", Match: func(line string) (Event, bool) {
			return Event{Kind: Pause}, strings.HasPrefix(line, "  =====  PAUSE")
		}},
		prefix("started", "Starting playback", Started),
		{Name: "geometry", Match: matchVideoOut},
		prefix("eof", "EOF code", EndOfStream),
		prefix("file-not-found", "File not found", FileNotFound),
		prefix("fatal", "FATAL:", Fatal),
		{Name: "aspect", Match: matchMovieAspect},
		{Name: "overlay", Match: matchOverlay},
		{Name: "outbuf", Match: func(line string) (Event, bool) {
			ok := strings.HasPrefix(line, "outbuf:") && strings.Contains(line, "shmem key")
			return Event{Kind: FrameBufferReady}, ok
		}},
		{Name: "input-config", Match: matchInputConfig},
	}
}

func matchTick(line string) (Event, bool) {
	groups := util.ReGroups(tickPattern, line)
	raw, ok := groups["pos"]
	if !ok {
		return Event{}, false
	}

	pos, err := ParseFloat(raw)
	if err != nil || pos < 0 {
		return Event{}, false
	}
	return Event{Kind: Tick, Position: pos}, true
}

func matchVideoOut(line string) (Event, bool) {
	if !strings.HasPrefix(line, "VO:") {
		return Event{}, false
	}

	w, h, ok := dimensions(voPattern, line)
	if !ok {
		return Event{}, false
	}
	return Event{Kind: Geometry, Width: w, Height: h, Aspect: float64(w) / float64(h)}, true
}

func matchMovieAspect(line string) (Event, bool) {
	groups := util.ReGroups(aspectPattern, line)
	raw, ok := groups["aspect"]
	if !ok {
		return Event{}, false
	}

	aspect, err := ParseFloat(raw)
	if err != nil || aspect <= 0 {
		return Event{}, false
	}
	return Event{Kind: Aspect, Aspect: aspect}, true
}

func matchOverlay(line string) (Event, bool) {
	if !strings.HasPrefix(line, "overlay:") || strings.Contains(line, "reusing") {
		return Event{}, false
	}

	w, h, ok := dimensions(sizePattern, line)
	if !ok {
		return Event{}, false
	}
	return Event{Kind: OverlayReady, Width: w, Height: h}, true
}

func matchInputConfig(line string) (Event, bool) {
	groups := util.ReGroups(inputConfigPath, strings.TrimRight(line, "\r\n "))
	path, ok := groups["path"]
	if !ok {
		return Event{}, false
	}
	return Event{Kind: InputConfigRead, Path: path}, true
}

func dimensions(pattern *regexp.Regexp, line string) (w, h int, ok bool) {
	groups := util.ReGroups(pattern, line)
	if len(groups) == 0 {
		return 0, 0, false
	}

	w, errW := strconv.Atoi(groups["w"])
	h, errH := strconv.Atoi(groups["h"])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
