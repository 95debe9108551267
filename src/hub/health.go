package hub

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Reporter periodically logs registry sizes to the operator log. It is
// diagnostic only: read-only against the registry and never on the
// routing path.
type Reporter struct {
	registry *Registry
	interval time.Duration
	logger   zerolog.Logger
	done     chan struct{}
	once     sync.Once
}

func NewReporter(registry *Registry, interval time.Duration, logger zerolog.Logger) *Reporter {
	return &Reporter{
		registry: registry,
		interval: interval,
		logger:   logger.With().Str("component", "health").Logger(),
		done:     make(chan struct{}),
	}
}

// Run emits a snapshot every interval until Stop. Call in a goroutine.
func (r *Reporter) Run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			clients, channels := r.registry.Snapshot()
			r.logger.Info().
				Int("clients", clients).
				Interface("channels", channels).
				Msg("registry snapshot")
		case <-r.done:
			return
		}
	}
}

// Stop halts the reporter. Safe to call more than once.
func (r *Reporter) Stop() {
	r.once.Do(func() { close(r.done) })
}
