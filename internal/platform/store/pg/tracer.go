package pg

import (
	"context"
	"strings"

	"sword/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one statement as seen by the adapter
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives every traced statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// maxArgLen caps string args in the trace; bitstream names and checksums fit
const maxArgLen = 80

// Tracer logs every statement regardless of the process level; slow ones warn
func Tracer(root logger.Logger) QueryTracer {
	return &zlTracer{log: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	evt := z.log.Info()
	if ev.Slow {
		evt = z.log.Warn()
	}
	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Interface("args", scrub(ev.Args)).
		Err(ev.Err).
		Msg("pg query")
}

// compact folds runs of whitespace so multi-line statements log on one line
func compact(s string) string { return strings.Join(strings.Fields(s), " ") }

// scrub hides password hashes and truncates long strings
func scrub(args any) any {
	list, ok := args.([]any)
	if !ok {
		return args
	}
	out := make([]any, len(list))
	for i, a := range list {
		s, ok := a.(string)
		switch {
		case !ok:
			out[i] = a
		case strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"):
			out[i] = "[redacted]"
		case len(s) > maxArgLen:
			out[i] = s[:maxArgLen] + "..."
		default:
			out[i] = s
		}
	}
	return out
}
