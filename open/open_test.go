package open

import (
	"testing"

	"github.com/projector-cli/projector/constant"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCommand(t *testing.T) {
	Convey("The handler should depend on the OS", t, func() {
		cmd, ok := command(constant.Linux, "/tmp/x")
		So(ok, ShouldBeTrue)
		So(cmd.Args, ShouldResemble, []string{"xdg-open", "/tmp/x"})

		cmd, ok = command(constant.Darwin, "/tmp/x")
		So(ok, ShouldBeTrue)
		So(cmd.Args, ShouldResemble, []string{"open", "/tmp/x"})

		_, ok = command("plan9", "/tmp/x")
		So(ok, ShouldBeFalse)
	})
}
