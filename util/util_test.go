package util

import (
	"math"
	"regexp"
	"testing"

	"github.com/projector-cli/projector/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "backend", "backends"), ShouldEqual, "1 backend")
		So(Quantify(2, "backend", "backends"), ShouldEqual, "2 backends")
	})
}

func TestReGroups(t *testing.T) {
	Convey("ReGroups", t, func() {
		re := regexp.MustCompile(`(?P<w>\d+)x(?P<h>\d+)`)
		groups := ReGroups(re, "VO: [xv] 720x576 => 1024x576 Planar YV12")
		So(groups["w"], ShouldEqual, "720")
		So(groups["h"], ShouldEqual, "576")

		So(ReGroups(re, "no geometry here"), ShouldBeEmpty)
	})
}

func TestClamp(t *testing.T) {
	Convey("Clamp", t, func() {
		So(Clamp(5, 0, 3), ShouldEqual, 3)
		So(Clamp(-1.5, 0, 1), ShouldEqual, 0)
		So(Clamp(0.5, 0, 1), ShouldEqual, 0.5)
	})
}

func TestFormatSeconds(t *testing.T) {
	Convey("FormatSeconds", t, func() {
		So(FormatSeconds(0), ShouldEqual, "0:00")
		So(FormatSeconds(65.9), ShouldEqual, "1:05")
		So(FormatSeconds(3725), ShouldEqual, "1:02:05")
		So(FormatSeconds(-3), ShouldEqual, "0:00")
		So(FormatSeconds(math.NaN()), ShouldEqual, "0:00")
	})
}

func TestDelete(t *testing.T) {
	Convey("Delete", t, func() {
		filesystem.SetMemMapFs()
		fs := filesystem.API()
		So(fs.MkdirAll("/tmp/x/y", 0o755), ShouldBeNil)
		So(fs.WriteFile("/tmp/x/y/file", []byte("1"), 0o644), ShouldBeNil)

		So(Delete("/tmp/x/y/file"), ShouldBeNil)
		So(Delete("/tmp/x"), ShouldBeNil)

		exists, _ := fs.Exists("/tmp/x")
		So(exists, ShouldBeFalse)
	})
}
