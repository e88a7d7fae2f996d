package config

import (
	"path/filepath"
	"testing"

	"github.com/projector-cli/projector/filesystem"
	"github.com/projector-cli/projector/key"
	"github.com/projector-cli/projector/where"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			So(Setup(), ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				So(viper.IsSet(name), ShouldBeTrue)
			}
			So(viper.GetDuration(key.PlayerStopTimeout).Seconds(), ShouldEqual, 3)
			So(viper.GetString(key.PlayerDefault), ShouldEqual, "mplayer")
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			So(EnvKeyReplacer.Replace("audio.device.mono"), ShouldEqual, "audio_device_mono")
		})
	})
}

func TestField(t *testing.T) {
	Convey("Given the audio delay field", t, func() {
		field := Default[key.AudioDelay]

		Convey("Env should carry the application prefix", func() {
			So(field.Env(), ShouldEqual, "PROJECTOR_AUDIO_DELAY")
		})

		Convey("Parse should accept a decimal comma", func() {
			v, err := field.Parse([]string{"0,25"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0.25)
		})

		Convey("Parse should reject garbage", func() {
			_, err := field.Parse([]string{"soon"})
			So(err, ShouldNotBeNil)
		})

		Convey("TypeName should report float", func() {
			So(field.TypeName(), ShouldEqual, "float")
		})
	})

	Convey("Given a list field", t, func() {
		field := Default[key.PlayerExclude]
		v, err := field.Parse([]string{"mpv", "mplayer"})
		So(err, ShouldBeNil)
		So(v, ShouldResemble, []string{"mpv", "mplayer"})
	})
}

func TestFile(t *testing.T) {
	Convey("The config file should sit in the config dir", t, func() {
		So(filepath.Dir(File()), ShouldEqual, where.Config())
		So(filepath.Base(File()), ShouldEqual, "projector.toml")
	})
}

func TestValidate(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		So(Setup(), ShouldBeNil)
		Reset(func() {
			for name, field := range Default {
				viper.Set(name, field.Value)
			}
		})

		Convey("it should be valid", func() {
			So(Validate(), ShouldBeNil)
		})

		Convey("every bad value should be reported", func() {
			viper.Set(key.PlayerStopTimeout, "soon")
			viper.Set(key.AudioChannels, 12)
			viper.Set(key.PlayerRequire, []string{"osd", " teleport"})

			err := Validate()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, key.PlayerStopTimeout)
			So(err.Error(), ShouldContainSubstring, "expected 1 to 8, got 12")
			So(err.Error(), ShouldContainSubstring, `unknown capability "teleport"`)
			So(err.Error(), ShouldNotContainSubstring, `"osd"`)
		})

		Convey("a slow poll should be refused", func() {
			viper.Set(key.PlayerPollInterval, "2s")
			So(Validate(), ShouldNotBeNil)
		})
	})
}
