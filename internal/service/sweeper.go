package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sweepable expires entities whose expiry passed without their timer firing,
// for example while the process was down.
type Sweepable interface {
	SweepExpired(ctx context.Context) (int, error)
}

// SweeperConfig holds configuration for the expiry sweeper.
type SweeperConfig struct {
	// Interval is how often the sweep runs. Default: 10 minutes
	Interval time.Duration

	// Timeout bounds a single sweep. Default: 5 minutes
	Timeout time.Duration
}

// DefaultSweeperConfig returns default sweeper configuration.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: 10 * time.Minute,
		Timeout:  5 * time.Minute,
	}
}

// Sweeper periodically runs SweepExpired on every registered target. It is
// the safety net behind the per-entity timers, not a replacement for them.
type Sweeper struct {
	targets   map[string]Sweepable
	config    SweeperConfig
	logger    zerolog.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewSweeper creates a new expiry sweeper over the named targets.
func NewSweeper(targets map[string]Sweepable, config SweeperConfig, logger zerolog.Logger) *Sweeper {
	defaults := DefaultSweeperConfig()
	if config.Interval == 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	return &Sweeper{
		targets: targets,
		config:  config,
		logger:  logger.With().Str("component", "sweeper").Logger(),
		stopCh:  make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	s.logger.Info().Dur("interval", s.config.Interval).Msg("sweeper started")

	go s.run()
}

func (s *Sweeper) run() {
	for {
		select {
		case <-s.ticker.C:
			s.RunNow()
		case <-s.stopCh:
			s.logger.Info().Msg("sweeper stopped")
			return
		}
	}
}

// RunNow sweeps every target once and returns the number of entities
// expired per target. A failing target does not stop the others.
func (s *Sweeper) RunNow() map[string]int {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	result := make(map[string]int, len(s.targets))
	for name, target := range s.targets {
		n, err := target.SweepExpired(ctx)
		result[name] = n
		if err != nil {
			s.logger.Error().Err(err).Str("target", name).Msg("sweep failed")
			continue
		}
		if n > 0 {
			s.logger.Info().Str("target", name).Int("expired", n).Msg("swept overdue entities")
		}
	}
	return result
}

// Stop stops the sweeper.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}
