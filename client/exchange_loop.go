package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"bump_server/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// State is the exchange loop's current phase.
type State string

const (
	StateIdle           State = "idle"
	StateWaitingForBump State = "waiting-for-bump"
	StateProcessing     State = "processing"
	StateMatched        State = "matched"
	StateTimeout        State = "timeout"
	StateError          State = "error"
)

// ErrExchangeTimeout is returned when the hard deadline fires before a match
// lands.
var ErrExchangeTimeout = errors.New("exchange attempt timed out")

// MotionEvent is one device-reported motion sample. Sampling heuristics live
// in the sensor layer; the loop only thresholds the magnitude.
type MotionEvent struct {
	Magnitude  float64
	VectorHash string
}

// MotionSource feeds motion events into the loop. Closing the channel is
// treated as the sampler shutting down.
type MotionSource interface {
	Events() <-chan MotionEvent
}

// Config carries the loop's tunables; zero values fall back to defaults that
// mirror the server's configuration.
type Config struct {
	Deadline           time.Duration
	PollInterval       time.Duration
	HitCooldown        time.Duration
	MagnitudeThreshold float64
	SharingCategory    string
}

func (c *Config) applyDefaults() {
	if c.Deadline <= 0 {
		c.Deadline = 10 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.HitCooldown <= 0 {
		c.HitCooldown = 500 * time.Millisecond
	}
}

// ExchangeLoop is the device-side state machine: it emits hits, polls for
// completion as a fallback, enforces one hard deadline, and cancels all of
// its activity together.
type ExchangeLoop struct {
	api     ExchangeAPI
	motion  MotionSource
	cfg     Config
	logger  *zap.Logger
	limiter *rate.Limiter

	mu        sync.Mutex
	state     State
	result    *models.MatchResult
	sessionID string
}

func NewExchangeLoop(api ExchangeAPI, motion MotionSource, cfg Config, logger *zap.Logger) *ExchangeLoop {
	cfg.applyDefaults()
	return &ExchangeLoop{
		api:    api,
		motion: motion,
		cfg:    cfg,
		logger: logger,
		// One token, refilled at the cooldown rate: a single sustained motion
		// cannot be double-counted as two hits.
		limiter:   rate.NewLimiter(rate.Every(cfg.HitCooldown), 1),
		state:     StateIdle,
		sessionID: uuid.NewString(),
	}
}

// SessionID returns the client-generated session id for this attempt.
func (l *ExchangeLoop) SessionID() string { return l.sessionID }

// State returns the loop's current state.
func (l *ExchangeLoop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Run drives the exchange attempt until a match, the deadline, or a terminal
// error. The deadline context is the join point for everything: when Run
// returns, neither motion handling nor polling is still in flight.
func (l *ExchangeLoop) Run(ctx context.Context) (*models.MatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Deadline)
	defer cancel()

	l.transition(StateWaitingForBump)

	var poller *time.Ticker
	var pollC <-chan time.Time
	defer func() {
		if poller != nil {
			poller.Stop()
		}
	}()

	events := l.motion.Events()
	for {
		select {
		case <-ctx.Done():
			// matched is sticky: a deadline firing after a match never
			// demotes the state.
			l.mu.Lock()
			if l.state == StateMatched {
				result := l.result
				l.mu.Unlock()
				return result, nil
			}
			l.state = StateTimeout
			l.mu.Unlock()
			return nil, ErrExchangeTimeout

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Magnitude < l.cfg.MagnitudeThreshold || !l.limiter.Allow() {
				continue
			}
			l.transition(StateProcessing)

			resp, err := l.api.SubmitHit(ctx, &models.SubmitHitRequest{
				SessionID:              l.sessionID,
				AccelerationMagnitude:  ev.Magnitude,
				AccelerationVectorHash: ev.VectorHash,
				SharingCategory:        l.cfg.SharingCategory,
				ClientTimestamp:        time.Now().UnixMilli(),
			})
			if err != nil {
				if terminal(err) {
					l.transition(StateError)
					return nil, err
				}
				l.logger.Warn("hit submit failed, will retry until deadline", zap.Error(err))
				continue
			}
			if resp.Matched {
				return l.finish(resp.Token, resp.Role), nil
			}
			// Not matched instantly: fall back to polling in case the
			// counterpart's hit lands after ours.
			if poller == nil {
				poller = time.NewTicker(l.cfg.PollInterval)
				pollC = poller.C
			}

		case <-pollC:
			resp, err := l.api.PollStatus(ctx, l.sessionID)
			if err != nil {
				if terminal(err) {
					l.transition(StateError)
					return nil, err
				}
				l.logger.Warn("poll failed, will retry until deadline", zap.Error(err))
				continue
			}
			if resp.HasMatch {
				return l.finish(resp.Token, resp.Role), nil
			}
		}
	}
}

func (l *ExchangeLoop) transition(next State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateMatched || l.state == StateTimeout || l.state == StateError {
		return
	}
	l.state = next
}

func (l *ExchangeLoop) finish(token, role string) *models.MatchResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateMatched
	l.result = &models.MatchResult{Token: token, Role: role}
	return l.result
}

// terminal reports whether an API error can never succeed on retry.
func terminal(err error) bool {
	return errors.Is(err, models.ErrValidation) ||
		errors.Is(err, models.ErrUnauthorized) ||
		errors.Is(err, models.ErrProfileNotFound)
}
