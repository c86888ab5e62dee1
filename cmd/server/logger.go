package main

import (
	"os"

	"github.com/rs/zerolog"
)

// zeroLogger adapts a zerolog.Logger to the auth.Logger interface.
type zeroLogger struct {
	log zerolog.Logger
}

func newLogger(component string) *zeroLogger {
	cw := zerolog.ConsoleWriter{Out: os.Stdout}
	return &zeroLogger{
		log: zerolog.New(cw).With().Timestamp().Str("component", component).Logger(),
	}
}

func (l *zeroLogger) Debug(format string, args ...any) { l.log.Debug().Msgf(format, args...) }
func (l *zeroLogger) Info(format string, args ...any)  { l.log.Info().Msgf(format, args...) }
func (l *zeroLogger) Warn(format string, args ...any)  { l.log.Warn().Msgf(format, args...) }
func (l *zeroLogger) Error(format string, args ...any) { l.log.Error().Msgf(format, args...) }
