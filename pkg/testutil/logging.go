package testutil

import (
	"flag"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func init() {
	logrus.SetLevel(logrus.TraceLevel)

	// Quiet unless the test binary was started with -v
	if f := flag.Lookup("test.v"); f == nil || f.Value.String() != "true" {
		logrus.SetOutput(io.Discard)
	}
}

// CaptureLogs records every entry written to the standard logger until the
// test finishes.
func CaptureLogs(t testing.TB) *logtest.Hook {
	t.Helper()

	logger := logrus.StandardLogger()
	hook := new(logtest.Hook)
	previous := logger.ReplaceHooks(logrus.LevelHooks{})
	logger.AddHook(hook)

	t.Cleanup(func() {
		logger.ReplaceHooks(previous)
	})
	return hook
}
