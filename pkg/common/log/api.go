/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import "sync"

// Level defines a log level for logging messages.
type Level int

// Log levels.
const (
	CRITICAL Level = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

// Logger is the basic logging interface. All modules log through an
// implementation of this interface obtained from a Provider.
type Logger interface {
	Fatalf(msg string, args ...interface{})
	Panicf(msg string, args ...interface{})
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
}

// Provider is a factory for module loggers.
type Provider interface {
	GetLogger(module string) Logger
}

var (
	providerInstance Provider = &modlogProvider{}
	providerOnce     sync.Once
)

// Initialize sets a custom logger provider for the whole process.
// It can only be set once, and must be called before any logging happens;
// later calls are ignored.
func Initialize(p Provider) {
	providerOnce.Do(func() {
		providerInstance = p
	})
}

func loggerProvider() Provider {
	return providerInstance
}
