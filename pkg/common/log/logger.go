/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"fmt"
	"strings"
	"sync"
)

// Log is an implementation of Logger interface.
// It encapsulates a default or custom logger to provide module and level based logging.
type Log struct {
	instance Logger
	module   string
	once     sync.Once
}

// New creates and returns a Logger implementation based on given module name.
// note: the underlying logger instance is lazy initialized on first use.
// To use your own logger implementation provide logger provider in 'Initialize()' before logging any line.
func New(module string) *Log {
	return &Log{module: module}
}

// Fatalf calls Fatalf function of underlying logger.
func (l *Log) Fatalf(msg string, args ...interface{}) {
	l.logger().Fatalf(msg, args...)
}

// Panicf calls Panicf function of underlying logger.
func (l *Log) Panicf(msg string, args ...interface{}) {
	l.logger().Panicf(msg, args...)
}

// Debugf calls Debugf function of underlying logger.
func (l *Log) Debugf(msg string, args ...interface{}) {
	l.logger().Debugf(msg, args...)
}

// Infof calls Infof function of underlying logger.
func (l *Log) Infof(msg string, args ...interface{}) {
	l.logger().Infof(msg, args...)
}

// Warnf calls Warnf function of underlying logger.
func (l *Log) Warnf(msg string, args ...interface{}) {
	l.logger().Warnf(msg, args...)
}

// Errorf calls Errorf function of underlying logger.
func (l *Log) Errorf(msg string, args ...interface{}) {
	l.logger().Errorf(msg, args...)
}

func (l *Log) logger() Logger {
	l.once.Do(func() {
		l.instance = loggerProvider().GetLogger(l.module)
	})

	return l.instance
}

var levels = newModuleLevels()

// SetLevel sets the log level for given module.
func SetLevel(module string, level Level) {
	levels.Set(module, level)
}

// GetLevel returns the log level for given module.
func GetLevel(module string) Level {
	return levels.Get(module)
}

// IsEnabledFor returns true if given log level is enabled for given module.
func IsEnabledFor(module string, level Level) bool {
	return level <= levels.Get(module)
}

// ParseLevel returns the log level from a string representation.
func ParseLevel(level string) (Level, error) {
	switch strings.ToUpper(level) {
	case "CRITICAL":
		return CRITICAL, nil
	case "ERROR":
		return ERROR, nil
	case "WARNING", "WARN":
		return WARNING, nil
	case "INFO":
		return INFO, nil
	case "DEBUG":
		return DEBUG, nil
	}

	return ERROR, fmt.Errorf("invalid log level: %s", level)
}

// moduleLevels maintains log levels based on modules.
type moduleLevels struct {
	levels map[string]Level
	mu     sync.RWMutex
}

func newModuleLevels() *moduleLevels {
	return &moduleLevels{levels: make(map[string]Level)}
}

func (l *moduleLevels) Set(module string, level Level) {
	l.mu.Lock()
	l.levels[module] = level
	l.mu.Unlock()
}

// Get returns the level for the module, INFO if not explicitly set.
func (l *moduleLevels) Get(module string) Level {
	l.mu.RLock()
	defer l.mu.RUnlock()

	level, exists := l.levels[module]
	if !exists {
		return INFO
	}

	return level
}
