package zerolog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	messageWidth = 72
	callerWidth  = 16
	lineWidth    = 4
)

// New builds a zerolog logger writing to stdout. When jsonFormat is false the
// console writer renders fixed-width coloured columns.
func New(level, dateTimeLayout string, colored, jsonFormat bool) (*zerolog.Logger, error) {
	return NewWithWriter(os.Stdout, level, dateTimeLayout, colored, jsonFormat)
}

func NewWithWriter(out io.Writer, level, dateTimeLayout string, colored, jsonFormat bool) (*zerolog.Logger, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	var writer io.Writer = out
	if !jsonFormat {
		console := zerolog.ConsoleWriter{
			Out:             out,
			NoColor:         !colored,
			TimeFormat:      dateTimeLayout,
			FormatLevel:     formatLevel,
			FormatMessage:   formatMessage,
			FormatCaller:    formatCaller,
			FormatTimestamp: func(i any) string { return formatTimestamp(i, dateTimeLayout) },
		}
		writer = console
	}

	l := zerolog.New(writer).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	return &l, nil
}

func formatLevel(i any) string {
	switch i {
	case zerolog.LevelTraceValue:
		return term.Cyanf("[TRC]")
	case zerolog.LevelDebugValue:
		return term.Cyanf("[DBG]")
	case zerolog.LevelInfoValue:
		return term.Greenf("[INF]")
	case zerolog.LevelWarnValue:
		return term.Yellowf("[WAR]")
	case zerolog.LevelErrorValue:
		return term.Redf("[ERR]")
	case zerolog.LevelFatalValue:
		return term.Redf("[FTL]")
	case zerolog.LevelPanicValue:
		return term.Redf("[PAN]")
	default:
		return term.Whitef("[UNK]")
	}
}

func formatMessage(i any) string {
	msg, ok := i.(string)
	if !ok || msg == "" {
		return ">"
	}
	if len(msg) > messageWidth {
		msg = msg[:messageWidth]
	}
	return term.Whitef("> %-*s", messageWidth, msg)
}

func formatCaller(i any) string {
	name, ok := i.(string)
	if !ok || name == "" {
		return ""
	}

	file, line, found := strings.Cut(filepath.Base(name), ":")
	if !found {
		return term.Yellowf("[%s]", file)
	}

	if len(file) > callerWidth {
		file = file[:callerWidth]
	}
	if len(line) > lineWidth {
		line = line[len(line)-lineWidth:]
	}

	return term.Yellowf("[%-*s:%*s]", callerWidth, file, lineWidth, line)
}

func formatTimestamp(i any, layout string) string {
	raw, ok := i.(string)
	if !ok {
		return term.Cyanf("[%v]", i)
	}

	if ts, err := time.ParseInLocation(time.RFC3339, raw, time.Local); err == nil {
		raw = ts.In(time.Local).Format(layout)
	}
	return term.Cyanf("[%s]", raw)
}
