package manager

import "github.com/rs/zerolog"

// LogPublisher writes events to a zerolog logger at debug level.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(l zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: l.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(e Event) {
	ev := p.log.Debug().Str("event", e.Name)
	if e.Model != "" {
		ev = ev.Str("model", e.Model)
	}
	if e.RequestID != "" {
		ev = ev.Str("gen_id", e.RequestID)
	}
	ev.Fields(e.Fields).Msg("manager event")
}
