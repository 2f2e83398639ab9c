package main

import (
	"os"
	_ "time/tzdata"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Errorf("pushupctl: %s", err)
		os.Exit(1)
	}
}
