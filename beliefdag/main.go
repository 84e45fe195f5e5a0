package main

import (
	"os"

	_ "github.com/beliefdag/beliefdag/modules/analyze"
	"github.com/beliefdag/beliefdag/modules/cli"
	_ "github.com/beliefdag/beliefdag/modules/frontend"
	"github.com/rs/zerolog/log"
)

func main() {
	err := cli.Run()

	if err != nil {
		log.Error().Msg(err.Error())
		os.Exit(1)
	}
}
