package web

import (
	"context"
	"log/slog"
	"strings"
)

// LogHandler returns a slog.Handler that forwards every record to inner and
// copies records at Info and above to the dashboard log feed.
func (s *Server) LogHandler(inner slog.Handler) slog.Handler {
	return &logTee{inner: inner, server: s}
}

type logTee struct {
	inner  slog.Handler
	server *Server
	attrs  []slog.Attr
}

func (t *logTee) Enabled(ctx context.Context, level slog.Level) bool {
	return t.inner.Enabled(ctx, level)
}

func (t *logTee) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo {
		var b strings.Builder
		b.WriteString(r.Message)
		write := func(a slog.Attr) bool {
			b.WriteString(" ")
			b.WriteString(a.Key)
			b.WriteString("=")
			b.WriteString(a.Value.String())
			return true
		}
		for _, a := range t.attrs {
			write(a)
		}
		r.Attrs(write)
		t.server.AddLog(strings.ToLower(r.Level.String()), b.String())
	}
	return t.inner.Handle(ctx, r)
}

func (t *logTee) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, t.attrs...), attrs...)
	return &logTee{inner: t.inner.WithAttrs(attrs), server: t.server, attrs: merged}
}

func (t *logTee) WithGroup(name string) slog.Handler {
	return &logTee{inner: t.inner.WithGroup(name), server: t.server, attrs: t.attrs}
}
