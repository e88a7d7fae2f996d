package protocol

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const mplayerHelp = `MPlayer 1.5-12.2.0 (C) 2000-2022 MPlayer Team
Available video filters:
  outbuf         : shared memory frame output
  overlay        : shared memory osd overlay
  scale          : software scaling
Available audio filters:
  volume         : Volume changer
Available video output drivers:
	xv	X11/Xv
	null	Null video output
Available audio output drivers:
	alsa	ALSA-0.9.x-1.x audio output
	null	Null audio output
`

func TestInfoScanner(t *testing.T) {
	Convey("Given mplayer help output", t, func() {
		s := NewInfoScanner(MPlayerDialect())
		for _, line := range splitLines(mplayerHelp) {
			s.Scan(line)
		}
		info := s.Info()

		So(info.Version, ShouldEqual, "1.5.0")
		So(info.VideoFilters, ShouldContainKey, "outbuf")
		So(info.VideoFilters["overlay"], ShouldEqual, "shared memory osd overlay")
		So(info.AudioFilters, ShouldContainKey, "volume")
		So(info.VideoDrivers["xv"], ShouldEqual, "X11/Xv")
		So(info.AudioDrivers, ShouldContainKey, "alsa")
		So(s.Section(), ShouldEqual, AudioDrivers)

		Convey("Key lists should keep single words only", func() {
			for _, line := range []string{"RIGHT", "LEFT", "ENTER", "Exiting... (End of file)"} {
				s.ScanKey(line)
			}
			So(s.Info().Keylist, ShouldResemble, []string{"RIGHT", "LEFT", "ENTER"})
		})
	})

	Convey("Given mpv help output", t, func() {
		s := NewInfoScanner(MPVDialect())
		for _, line := range []string{
			"mpv v0.36.0-git-1234 Copyright © 2000-2023 mpv/MPlayer/mplayer2 projects",
			"Available video outputs:",
			"  gpu              Shader-based GPU Renderer",
			"  null             Null video output",
			"Available audio outputs:",
			"  pulse            PulseAudio audio output",
		} {
			s.Scan(line)
		}

		info := s.Info()
		So(info.Version, ShouldEqual, "0.36.0")
		So(info.HasVideoDriver("gpu"), ShouldBeTrue)
		So(info.AudioDrivers, ShouldContainKey, "pulse")
	})
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return lines
}
