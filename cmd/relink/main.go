package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"relink/internal/catalog"
	"relink/internal/ledger"
	"relink/internal/store"
)

// Exit codes. Setup failures leave the ledger untouched and need operator
// action before a rerun can succeed.
const (
	exitFailure = 1
	exitSetup   = 2
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(exitFailure)
		}
		fmt.Fprintln(os.Stderr, "relink:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	for _, setup := range []error{
		catalog.ErrEmptyCatalog,
		ledger.ErrCorrupt,
		ledger.ErrSchemaMismatch,
		ledger.ErrLocked,
		store.ErrSchemaMismatch,
	} {
		if errors.Is(err, setup) {
			return exitSetup
		}
	}
	return exitFailure
}
