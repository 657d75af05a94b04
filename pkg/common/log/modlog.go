/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"log"
	"os"
)

// modlogProvider is the default logger provider used when no custom provider
// is supplied through Initialize(). It writes to stderr via the standard
// library logger, honoring per-module log levels.
type modlogProvider struct{}

// GetLogger returns a level-filtering logger for the given module.
func (p *modlogProvider) GetLogger(module string) Logger {
	return &modlog{
		logger: log.New(os.Stderr, " ["+module+"] ", log.Ldate|log.Ltime|log.LUTC),
		module: module,
	}
}

type modlog struct {
	logger *log.Logger
	module string
}

func (m *modlog) Fatalf(msg string, args ...interface{}) {
	m.logger.Fatalf("=> CRIT "+msg, args...)
}

func (m *modlog) Panicf(msg string, args ...interface{}) {
	m.logger.Panicf("=> CRIT "+msg, args...)
}

func (m *modlog) Debugf(msg string, args ...interface{}) {
	m.logf(DEBUG, "=> DEBU "+msg, args...)
}

func (m *modlog) Infof(msg string, args ...interface{}) {
	m.logf(INFO, "=> INFO "+msg, args...)
}

func (m *modlog) Warnf(msg string, args ...interface{}) {
	m.logf(WARNING, "=> WARN "+msg, args...)
}

func (m *modlog) Errorf(msg string, args ...interface{}) {
	m.logf(ERROR, "=> ERRO "+msg, args...)
}

func (m *modlog) logf(level Level, msg string, args ...interface{}) {
	if !IsEnabledFor(m.module, level) {
		return
	}

	m.logger.Printf(msg, args...)
}
