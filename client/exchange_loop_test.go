package client

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bump_server/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMotion struct {
	ch chan MotionEvent
}

func newFakeMotion() *fakeMotion {
	return &fakeMotion{ch: make(chan MotionEvent, 16)}
}

func (f *fakeMotion) Events() <-chan MotionEvent { return f.ch }

func (f *fakeMotion) emit(magnitude float64) {
	f.ch <- MotionEvent{Magnitude: magnitude, VectorHash: "h"}
}

// fakeAPI scripts SubmitHit and PollStatus responses and counts calls.
type fakeAPI struct {
	mu        sync.Mutex
	hitCount  int
	pollCount int

	hitResponses  []*models.SubmitHitResponse
	hitErr        error
	pollResponses []*models.PollStatusResponse
}

func (f *fakeAPI) SubmitHit(ctx context.Context, req *models.SubmitHitRequest) (*models.SubmitHitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hitCount++
	if f.hitErr != nil {
		return nil, f.hitErr
	}
	if len(f.hitResponses) == 0 {
		return &models.SubmitHitResponse{Success: true}, nil
	}
	resp := f.hitResponses[0]
	if len(f.hitResponses) > 1 {
		f.hitResponses = f.hitResponses[1:]
	}
	return resp, nil
}

func (f *fakeAPI) PollStatus(ctx context.Context, sessionID string) (*models.PollStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCount++
	if len(f.pollResponses) == 0 {
		return &models.PollStatusResponse{Success: true}, nil
	}
	resp := f.pollResponses[0]
	if len(f.pollResponses) > 1 {
		f.pollResponses = f.pollResponses[1:]
	}
	return resp, nil
}

func (f *fakeAPI) hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hitCount
}

func TestInstantMatchOnHit(t *testing.T) {
	api := &fakeAPI{hitResponses: []*models.SubmitHitResponse{
		{Success: true, Matched: true, Token: "tok-1", Role: models.RoleA},
	}}
	motion := newFakeMotion()
	loop := NewExchangeLoop(api, motion, Config{Deadline: 2 * time.Second, MagnitudeThreshold: 10}, zap.NewNop())

	motion.emit(15)
	result, err := loop.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", result.Token)
	require.Equal(t, models.RoleA, result.Role)
	require.Equal(t, StateMatched, loop.State())
	require.Equal(t, 1, api.hits())
}

func TestMatchArrivesViaPolling(t *testing.T) {
	api := &fakeAPI{
		hitResponses: []*models.SubmitHitResponse{{Success: true}},
		pollResponses: []*models.PollStatusResponse{
			{Success: true},
			{Success: true, HasMatch: true, Token: "tok-2", Role: models.RoleB},
		},
	}
	motion := newFakeMotion()
	loop := NewExchangeLoop(api, motion, Config{
		Deadline:           2 * time.Second,
		PollInterval:       20 * time.Millisecond,
		MagnitudeThreshold: 10,
	}, zap.NewNop())

	motion.emit(15)
	result, err := loop.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-2", result.Token)
	require.Equal(t, models.RoleB, result.Role)
	require.Equal(t, StateMatched, loop.State())
}

func TestDeadlineYieldsTimeout(t *testing.T) {
	api := &fakeAPI{}
	motion := newFakeMotion()
	loop := NewExchangeLoop(api, motion, Config{
		Deadline:           80 * time.Millisecond,
		PollInterval:       20 * time.Millisecond,
		MagnitudeThreshold: 10,
	}, zap.NewNop())

	motion.emit(15)
	result, err := loop.Run(context.Background())
	require.ErrorIs(t, err, ErrExchangeTimeout)
	require.Nil(t, result)
	require.Equal(t, StateTimeout, loop.State())
}

func TestCooldownSuppressesDoubleHit(t *testing.T) {
	api := &fakeAPI{
		hitResponses: []*models.SubmitHitResponse{{Success: true}},
	}
	motion := newFakeMotion()
	loop := NewExchangeLoop(api, motion, Config{
		Deadline:           150 * time.Millisecond,
		PollInterval:       time.Second, // polls stay out of the way
		HitCooldown:        time.Second,
		MagnitudeThreshold: 10,
	}, zap.NewNop())

	// One sustained motion reported as a burst of samples.
	motion.emit(15)
	motion.emit(18)
	motion.emit(16)

	_, err := loop.Run(context.Background())
	require.ErrorIs(t, err, ErrExchangeTimeout)
	require.Equal(t, 1, api.hits())
}

func TestBelowThresholdMotionIsIgnored(t *testing.T) {
	api := &fakeAPI{}
	motion := newFakeMotion()
	loop := NewExchangeLoop(api, motion, Config{
		Deadline:           80 * time.Millisecond,
		MagnitudeThreshold: 10,
	}, zap.NewNop())

	motion.emit(3)
	motion.emit(9.9)

	_, err := loop.Run(context.Background())
	require.ErrorIs(t, err, ErrExchangeTimeout)
	require.Equal(t, 0, api.hits())
}

func TestTerminalErrorStopsLoop(t *testing.T) {
	api := &fakeAPI{hitErr: fmt.Errorf("%w: no profile", models.ErrProfileNotFound)}
	motion := newFakeMotion()
	loop := NewExchangeLoop(api, motion, Config{Deadline: 2 * time.Second, MagnitudeThreshold: 10}, zap.NewNop())

	motion.emit(15)
	result, err := loop.Run(context.Background())
	require.ErrorIs(t, err, models.ErrProfileNotFound)
	require.Nil(t, result)
	require.Equal(t, StateError, loop.State())
}

func TestTransientErrorRetriesUntilDeadline(t *testing.T) {
	api := &fakeAPI{hitErr: fmt.Errorf("connection refused")}
	motion := newFakeMotion()
	loop := NewExchangeLoop(api, motion, Config{
		Deadline:           80 * time.Millisecond,
		HitCooldown:        10 * time.Millisecond,
		MagnitudeThreshold: 10,
	}, zap.NewNop())

	motion.emit(15)
	_, err := loop.Run(context.Background())
	require.ErrorIs(t, err, ErrExchangeTimeout)
	require.Equal(t, StateTimeout, loop.State())
	require.GreaterOrEqual(t, api.hits(), 1)
}

func TestClosedMotionSourceStillTimesOut(t *testing.T) {
	api := &fakeAPI{}
	motion := newFakeMotion()
	close(motion.ch)
	loop := NewExchangeLoop(api, motion, Config{Deadline: 50 * time.Millisecond}, zap.NewNop())

	_, err := loop.Run(context.Background())
	require.ErrorIs(t, err, ErrExchangeTimeout)
}

func TestSessionIDIsStablePerLoop(t *testing.T) {
	api := &fakeAPI{}
	loop := NewExchangeLoop(api, newFakeMotion(), Config{}, zap.NewNop())
	other := NewExchangeLoop(api, newFakeMotion(), Config{}, zap.NewNop())

	require.NotEmpty(t, loop.SessionID())
	require.Equal(t, loop.SessionID(), loop.SessionID())
	require.NotEqual(t, loop.SessionID(), other.SessionID())
}
