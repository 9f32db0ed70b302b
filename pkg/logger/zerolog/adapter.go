package zerolog

import (
	"fmt"

	"github.com/raykavin/alphabot/pkg/logger"
	"github.com/rs/zerolog"
)

// Adapter exposes a zerolog.Logger through logger.Logger.
type Adapter struct {
	*zerolog.Logger
}

func NewAdapter(l *zerolog.Logger) *Adapter {
	return &Adapter{l}
}

// Nop returns an adapter that discards everything.
func Nop() *Adapter {
	l := zerolog.Nop()
	return NewAdapter(&l)
}

func (a *Adapter) GetLevel() logger.Level {
	return toLevel(a.Logger.GetLevel())
}

func (a *Adapter) SetLevel(level logger.Level) {
	zerolog.SetGlobalLevel(toZerologLevel(level))
}

func (a *Adapter) Print(args ...any) { a.Logger.Print(args...) }
func (a *Adapter) Trace(args ...any) { a.Logger.Trace().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Debug(args ...any) { a.Logger.Debug().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Info(args ...any)  { a.Logger.Info().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Warn(args ...any)  { a.Logger.Warn().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Error(args ...any) { a.Logger.Error().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Fatal(args ...any) { a.Logger.Fatal().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Panic(args ...any) { a.Logger.Panic().Msg(fmt.Sprint(args...)) }

func (a *Adapter) Printf(format string, args ...any) { a.Logger.Printf(format, args...) }
func (a *Adapter) Tracef(format string, args ...any) { a.Logger.Trace().Msgf(format, args...) }
func (a *Adapter) Debugf(format string, args ...any) { a.Logger.Debug().Msgf(format, args...) }
func (a *Adapter) Infof(format string, args ...any)  { a.Logger.Info().Msgf(format, args...) }
func (a *Adapter) Warnf(format string, args ...any)  { a.Logger.Warn().Msgf(format, args...) }
func (a *Adapter) Errorf(format string, args ...any) { a.Logger.Error().Msgf(format, args...) }
func (a *Adapter) Fatalf(format string, args ...any) { a.Logger.Fatal().Msgf(format, args...) }
func (a *Adapter) Panicf(format string, args ...any) { a.Logger.Panic().Msgf(format, args...) }

func (a *Adapter) WithError(err error) logger.Logger {
	child := a.With().Err(err).Logger()
	return &Adapter{&child}
}

func (a *Adapter) WithField(key string, value any) logger.Logger {
	child := a.With().Interface(key, fmt.Sprint(value)).Logger()
	return &Adapter{&child}
}

func (a *Adapter) WithFields(fields map[string]any) logger.Logger {
	child := a.With().Fields(fields).Logger()
	return &Adapter{&child}
}

var zerologToLevel = map[zerolog.Level]logger.Level{
	zerolog.Disabled:   logger.Disabled,
	zerolog.NoLevel:    logger.NoLevel,
	zerolog.TraceLevel: logger.TraceLevel,
	zerolog.DebugLevel: logger.DebugLevel,
	zerolog.InfoLevel:  logger.InfoLevel,
	zerolog.WarnLevel:  logger.WarnLevel,
	zerolog.ErrorLevel: logger.ErrorLevel,
	zerolog.FatalLevel: logger.FatalLevel,
	zerolog.PanicLevel: logger.PanicLevel,
}

func toLevel(level zerolog.Level) logger.Level {
	if l, ok := zerologToLevel[level]; ok {
		return l
	}
	return logger.NoLevel
}

func toZerologLevel(level logger.Level) zerolog.Level {
	for zl, l := range zerologToLevel {
		if l == level {
			return zl
		}
	}
	return zerolog.NoLevel
}
