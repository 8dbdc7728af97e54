//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package env implements global environment for the tallier MPC
// engine.
package env

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Config defines the global system configuration for the tallier. It
// configures system operation for all engine modules. Config must not
// be modified after being passed to any module. It is safe for
// concurrent use by multiple modules as they do not modify it.
type Config struct {
	Rand    io.Reader
	Verbose bool
}

// GetRandom returns the source of entropy for share polynomials and
// random field elements. The returned reader must be safe for
// concurrent use.
func (config *Config) GetRandom() io.Reader {
	if config != nil && config.Rand != nil {
		return config.Rand
	}
	return rand.Reader
}

// Debugf prints debugging message if Verbose output is enabled.
func (config *Config) Debugf(format string, a ...interface{}) {
	if config == nil || !config.Verbose {
		return
	}
	fmt.Printf(format, a...)
}
