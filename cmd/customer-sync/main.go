// Package main is the entry point for the customer sync service.
package main

import (
	"os"

	"github.com/bookwell/customer-sync/cmd/customer-sync/app"
	"github.com/bookwell/customer-sync/internal/logger"
)

func main() {
	logger.Initialize()
	defer func() {
		_ = logger.Sync()
	}()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
