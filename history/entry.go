package history

import (
	"fmt"
	"time"

	"github.com/projector-cli/projector/util"
)

// Entry is the last known playback state of one reference.
type Entry struct {
	Ref      string    `json:"ref"`
	Engine   string    `json:"engine"`
	Position float64   `json:"position"`
	Length   float64   `json:"length"`
	Finished bool      `json:"finished"`
	PlayedAt time.Time `json:"played_at"`
}

// Progress is the played fraction, or 0 when the length is unknown.
func (e *Entry) Progress() float64 {
	if e.Length <= 0 {
		return 0
	}
	return util.Clamp(e.Position/e.Length, 0, 1)
}

func (e *Entry) String() string {
	if e.Length <= 0 {
		return fmt.Sprintf("%s @ %s", e.Ref, util.FormatSeconds(e.Position))
	}
	return fmt.Sprintf("%s @ %s / %s", e.Ref, util.FormatSeconds(e.Position), util.FormatSeconds(e.Length))
}
