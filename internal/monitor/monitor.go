// Package monitor implements the error-tracking sink scheduling failures
// are forwarded to.
package monitor

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sink records captured errors with their tags. It satisfies
// planner.Reporter and stands where a hosted APM client would be wired in
// production deployments.
type Sink struct {
	logger zerolog.Logger
}

// NewSink creates a sink writing through the global logger.
func NewSink() *Sink {
	return &Sink{logger: log.With().Str("component", "monitor").Logger()}
}

// CaptureError records err with its tags at error level.
func (s *Sink) CaptureError(err error, tags map[string]string) {
	event := s.logger.Error().Err(err)
	for k, v := range tags {
		event = event.Str(k, v)
	}
	event.Msg("Captured error")
}
