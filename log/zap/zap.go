// Package zap adapts a *zap.Logger to ownercache.Logger.
package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/ownercache"
)

var _ ownercache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

func (z Logger) Debug(msg string, f ownercache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f ownercache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f ownercache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f ownercache.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f ownercache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
