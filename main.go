package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/phillip-england/locsetup/internal/locsetupcli"
	"github.com/phillip-england/locsetup/internal/logger"
)

func main() {
	if err := locsetupcli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, locsetupcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			locsetupcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		logger.Default().Error("locsetup failed", "error", err)
		os.Exit(1)
	}
}
