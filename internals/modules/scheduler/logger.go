package scheduler

import (
	"github.com/rs/zerolog"
)

// cronLogger forwards gocron's internal logging to zerolog.
type cronLogger struct {
	log *zerolog.Logger
}

func (l cronLogger) Debug(msg string, args ...any) { l.log.Debug().Fields(args).Msg(msg) }
func (l cronLogger) Error(msg string, args ...any) { l.log.Error().Fields(args).Msg(msg) }
func (l cronLogger) Info(msg string, args ...any)  { l.log.Info().Fields(args).Msg(msg) }
func (l cronLogger) Warn(msg string, args ...any)  { l.log.Warn().Fields(args).Msg(msg) }
