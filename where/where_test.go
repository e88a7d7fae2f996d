package where

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/projector-cli/projector/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config()", func() {
			path := Config()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Config() should honour the override", func() {
			custom := filepath.Join(os.TempDir(), "projector-where-test")
			t.Setenv(EnvConfigPath, custom)
			So(Config(), ShouldEqual, custom)
			So(lo.Must(filesystem.API().IsDir(custom)), ShouldBeTrue)
		})

		Convey("Cache()", func() {
			path := Cache()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Persisted state should live in the cache dir", func() {
			for _, file := range []string{Capabilities(), History(), Queries()} {
				So(filepath.Dir(file), ShouldEqual, Cache())
				So(filepath.Ext(file), ShouldEqual, ".json")
			}
			So(lo.Uniq([]string{Capabilities(), History(), Queries()}), ShouldHaveLength, 3)
		})

		Convey("Logs()", func() {
			path := Logs()
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Temp()", func() {
			So(lo.Must(filesystem.API().IsDir(Temp())), ShouldBeTrue)
		})
	})
}
