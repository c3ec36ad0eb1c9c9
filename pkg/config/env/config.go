// Package env provides configs backed by process environment variables.
package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/code-payments/copy-trader/pkg/config"
	"github.com/code-payments/copy-trader/pkg/config/wrapper"
)

// variable is re-read on every Get, so changes to the environment (including
// a later LoadDotEnv) are picked up.
type variable string

// NewConfig returns a config backed by the environment variable name, upper
// cased. Values are yielded as []byte with surrounding whitespace removed.
func NewConfig(name string) config.Config {
	return variable(strings.ToUpper(name))
}

func (v variable) Get(_ context.Context) (interface{}, error) {
	raw := strings.TrimSpace(os.Getenv(string(v)))
	if raw == "" {
		return nil, config.ErrNoValue
	}
	return []byte(raw), nil
}

func (variable) Shutdown() {}

func NewUint64Config(name string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(name), defaultValue)
}

func NewStringConfig(name string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(name), defaultValue)
}

func NewBoolConfig(name string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(name), defaultValue)
}

func NewDurationConfig(name string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(name), defaultValue)
}
