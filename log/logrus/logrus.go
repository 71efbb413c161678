// Package logrus adapts a *logrus.Entry to ownercache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/ownercache"
)

var _ ownercache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New wraps l, tagging every line with component=ownercache.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "ownercache")}
}

func (l Logger) Debug(msg string, f ownercache.Fields) { l.E.WithFields(logrus.Fields(f)).Debug(msg) }
func (l Logger) Info(msg string, f ownercache.Fields)  { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logger) Warn(msg string, f ownercache.Fields)  { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logger) Error(msg string, f ownercache.Fields) { l.E.WithFields(logrus.Fields(f)).Error(msg) }
