package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/WaywardWizard/cuenim/cmd"
	errUtils "github.com/WaywardWizard/cuenim/errors"
)

// osExit is a variable so tests can intercept the exit.
var osExit = os.Exit

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		// POSIX convention: 128 + signal number.
		if s, ok := sig.(syscall.Signal); ok {
			osExit(128 + int(s))
		}
		osExit(130)
	}()

	osExit(run())
}

func run() int {
	if err := cmd.Execute(); err != nil {
		log.Error(err.Error())
		for _, detail := range errUtils.GetAllDetails(err) {
			log.Error(detail)
		}
		return 1
	}
	return 0
}
