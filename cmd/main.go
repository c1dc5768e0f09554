package main

import (
	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/cli"
)

func main() {
	cli.Execute()
}
