// Package main is the entry point of projector.
package main

import (
	"github.com/projector-cli/projector/cmd"
	"github.com/projector-cli/projector/config"
	"github.com/projector-cli/projector/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
