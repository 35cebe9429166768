// Package testutil provides shared test helpers for rangeping packages.
package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Logger returns a debug-level Zap logger that writes through t.Log, so
// output only shows for failing or verbose tests.
func Logger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel))
}
