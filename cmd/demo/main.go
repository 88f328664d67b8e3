package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
	"github.com/tjfontaine/mobile-api-client/internal/errinfo"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitGeneral   = 1
	ExitUsage     = 2
	ExitConfig    = 3
	ExitAPI       = 4
	ExitInterrupt = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(defaultEnv())
	if err := root.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// printError writes err the way a user should see it.
func printError(w *os.File, err error) {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintln(w, errinfo.FromError(err).String())
		return
	}
	fmt.Fprintln(w, "Error:", err)
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	if isCobraUsageError(err) || errors.Is(err, errInvalidID) {
		return ExitUsage
	}

	if errors.Is(err, errConfig) {
		return ExitConfig
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return ExitAPI
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate
// Cobra usage errors. Cobra does not expose typed errors.
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"flag needs an argument",
	"invalid argument",
	"unknown command",
	"accepts ",
	"requires at least",
	"requires at most",
}

func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
