package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/baechuer/recsys-storefront/middleware"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

const serviceName = "recsys-storefront"

var Log = zerolog.New(io.Discard)

func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter configures the global logger from LOG_LEVEL and LOG_FORMAT ("json" or "console").
func InitWithWriter(w io.Writer) {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || os.Getenv("LOG_LEVEL") == "" {
		level = zerolog.InfoLevel
	}

	out := w
	if os.Getenv("LOG_FORMAT") != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	Log = zerolog.New(out).With().Timestamp().Str("service", serviceName).Logger().Level(level)
	zlog.Logger = Log
}

// Ctx returns a logger carrying the request id and the resolved identity, if any.
func Ctx(ctx context.Context) *zerolog.Logger {
	reqID := middleware.GetRequestID(ctx)
	id := middleware.GetIdentity(ctx)
	if reqID == "" && id.IsZero() {
		return &Log
	}
	c := Log.With()
	if reqID != "" {
		c = c.Str("request_id", reqID)
	}
	if !id.IsZero() {
		c = c.Str("user_id", id.String())
	}
	l := c.Logger()
	return &l
}
