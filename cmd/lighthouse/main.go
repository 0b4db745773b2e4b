package main

import (
	"github.com/criticalstack/lighthouse/cmd/lighthouse/app"
	"github.com/criticalstack/lighthouse/internal/log"
)

func main() {
	if err := app.NewCommand().Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}
