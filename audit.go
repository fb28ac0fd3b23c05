package goMiniAuth

import (
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/goMiniAuth/internal/audit"
)

// AuditEvent is one audit record emitted by the Engine.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine. Emit must be
// safe for concurrent use if the sink is shared.
type AuditSink = internalaudit.Sink

type (
	NoOpSink       = internalaudit.NoOpSink
	ChannelSink    = internalaudit.ChannelSink
	JSONWriterSink = internalaudit.JSONWriterSink
	SlogSink       = internalaudit.SlogSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON event per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink logs events through logger, or slog.Default() when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
