package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/check"
)

var (
	// ErrCheckTimeout is the failure reported when an asynchronous check is
	// still processing after the configured timeout.
	ErrCheckTimeout = errors.New("check timed out")
	// ErrNoCheckID is returned when a backend accepts a check without
	// returning either a result or an id to poll.
	ErrNoCheckID = errors.New("no check ID received from server")
)

// Status is the lifecycle state of the current check.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// State is a snapshot of the coordinator.
type State struct {
	Status   Status
	Progress int
	CheckID  string
	// RecordID is the history record of the current check.
	RecordID string
	Result   *check.Result
	Error    string
	// Err is the error behind Error, for errors.Is checks.
	Err   error
	Debug *check.Debug
}

// Backend runs checks. Submit either finishes the check or returns an id
// that Poll can follow.
type Backend interface {
	Submit(ctx context.Context, req check.Request) (check.Submission, error)
	Poll(ctx context.Context, checkID string) (check.PollResult, error)
}

// History persists check records.
type History interface {
	Save(ctx context.Context, rec check.Record) error
	Get(ctx context.Context, id string) (*check.Record, error)
}

// Options configures a Coordinator.
type Options struct {
	// Timeout bounds how long an asynchronous check may keep processing,
	// measured from the first poll. Defaults to check.CheckTimeout.
	Timeout time.Duration
	// PollInterval is the delay between polls when the backend gives no
	// retry hint. Defaults to check.PollInterval.
	PollInterval time.Duration
	Logger       *zap.Logger
	// OnChange is called with a snapshot after every state change. It runs
	// on the goroutine that made the change and must not block.
	OnChange func(State)
}

// Coordinator runs checks against a backend and records them in history.
// It is safe for concurrent use.
type Coordinator struct {
	backend Backend
	history History
	opts    Options
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	state    State
	gen      uint64
	stopPoll context.CancelFunc
	notify   chan struct{}
	wg       sync.WaitGroup
}

// New creates a coordinator. history may be nil to disable persistence.
func New(backend Backend, history History, opts Options) *Coordinator {
	if opts.Timeout <= 0 {
		opts.Timeout = check.CheckTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = check.PollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		backend: backend,
		history: history,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		state:   State{Status: StatusIdle},
		notify:  make(chan struct{}),
	}
}

// State returns a snapshot of the current check.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit starts a check for req, replacing any check in progress. It
// returns once the backend has answered: a finished check is completed, an
// accepted one is processing and polled in the background. The returned
// error is also recorded in the state.
func (c *Coordinator) Submit(ctx context.Context, req check.Request) error {
	started := c.now()
	recordID := uuid.NewString()

	c.mu.Lock()
	c.stopLocked()
	gen := c.gen
	c.mu.Unlock()

	c.transition(gen, func(s *State) {
		*s = State{Status: StatusSubmitting, RecordID: recordID}
	})

	profileName := req.ProfileName
	if profileName == "" {
		profileName = "Unknown"
	}
	c.save(ctx, check.Record{
		ID:          recordID,
		Timestamp:   started,
		Content:     req.Content,
		ContentType: req.ContentType,
		FileName:    req.FileName,
		ProfileID:   req.ProfileID,
		ProfileName: profileName,
		Language:    req.LanguageID,
		Status:      check.StatusPending,
	})

	sub, err := c.backend.Submit(ctx, req)
	if err == nil && sub.Result == nil && sub.CheckID == "" {
		err = ErrNoCheckID
	}
	if err != nil {
		c.fail(gen, recordID, started, err)
		return err
	}

	if sub.Result != nil {
		debug := sub.Debug
		if debug == nil {
			debug = sub.Result.Debug
		}
		if c.complete(gen, recordID, started, sub.Result, debug) {
			c.logger.Info("check completed",
				zap.String("checkId", sub.Result.ID),
				zap.Int("score", sub.Result.Score),
				zap.Int("issues", len(sub.Result.Issues)),
			)
		}
		return nil
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	pollCtx, cancel := context.WithCancel(ctx)
	c.stopPoll = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	c.transition(gen, func(s *State) {
		s.Status = StatusProcessing
		s.CheckID = sub.CheckID
		s.Debug = sub.Debug
	})
	c.logger.Info("check accepted", zap.String("checkId", sub.CheckID))

	go c.poll(pollCtx, ctx, gen, sub.CheckID, recordID, started)
	return nil
}

// Wait blocks until the current check completes or fails, or the
// coordinator is idle, and returns the final state.
func (c *Coordinator) Wait(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		state := c.state
		ch := c.notify
		c.mu.Unlock()

		if state.Status != StatusSubmitting && state.Status != StatusProcessing {
			return state, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// Cancel abandons a processing check and returns to idle. The backend is
// not told; the check may still finish there unobserved. Cancel does
// nothing in any other state.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	if c.state.Status != StatusProcessing {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	gen := c.gen
	c.mu.Unlock()

	c.transition(gen, func(s *State) { *s = State{Status: StatusIdle} })
}

// Reset stops any polling and returns to idle, clearing the result, error,
// and progress.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.stopLocked()
	gen := c.gen
	c.mu.Unlock()

	c.transition(gen, func(s *State) { *s = State{Status: StatusIdle} })
}

// Record returns the history record of the current check.
func (c *Coordinator) Record(ctx context.Context) (*check.Record, error) {
	if c.history == nil {
		return nil, errors.New("history is disabled")
	}
	id := c.State().RecordID
	if id == "" {
		return nil, errors.New("no check has been submitted")
	}
	return c.history.Get(ctx, id)
}

// Close stops polling and waits for the poll goroutine to exit.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
	c.wg.Wait()
}

// stopLocked cancels the running poll and invalidates every pending update
// from the current check.
func (c *Coordinator) stopLocked() {
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
	c.gen++
}

// transition applies fn to the state if gen is still current, wakes
// waiters, and reports the change. It returns false for stale updates.
func (c *Coordinator) transition(gen uint64, fn func(*State)) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	snapshot := c.state
	close(c.notify)
	c.notify = make(chan struct{})
	c.mu.Unlock()

	if c.opts.OnChange != nil {
		c.opts.OnChange(snapshot)
	}
	return true
}

func (c *Coordinator) poll(ctx, parent context.Context, gen uint64, checkID, recordID string, started time.Time) {
	defer c.wg.Done()

	pollStart := c.now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.abandon(parent, gen, recordID, started)
			return
		case <-timer.C:
		}

		pr, err := c.backend.Poll(ctx, checkID)
		if ctx.Err() != nil {
			c.abandon(parent, gen, recordID, started)
			return
		}
		if err != nil {
			c.fail(gen, recordID, started, fmt.Errorf("polling check %s: %w", checkID, err))
			return
		}

		switch pr.Status {
		case check.PollProcessing:
			if c.now().Sub(pollStart) > c.opts.Timeout {
				c.fail(gen, recordID, started, ErrCheckTimeout)
				return
			}
			if !c.transition(gen, func(s *State) { s.Progress = pr.Progress }) {
				return
			}
			delay := pr.RetryAfter
			if delay <= 0 {
				delay = c.opts.PollInterval
			}
			timer.Reset(delay)

		case check.PollCompleted:
			if pr.Result == nil {
				c.fail(gen, recordID, started, fmt.Errorf("check %s completed without a result", checkID))
				return
			}
			debug := c.mergeDebug(pr.Result.Debug)
			if c.complete(gen, recordID, started, pr.Result, debug) {
				c.logger.Info("check completed",
					zap.String("checkId", checkID),
					zap.Int("score", pr.Result.Score),
					zap.Int("issues", len(pr.Result.Issues)),
					zap.Duration("elapsed", c.now().Sub(started)),
				)
			}
			return

		default:
			msg := "check failed"
			if pr.Error != nil && pr.Error.Message != "" {
				msg = pr.Error.Message
			}
			c.fail(gen, recordID, started, errors.New(msg))
			return
		}
	}
}

// abandon handles a poll context that ended. A local stop has already moved
// the state on; a canceled caller context fails the check.
func (c *Coordinator) abandon(parent context.Context, gen uint64, recordID string, started time.Time) {
	if err := parent.Err(); err != nil {
		c.fail(gen, recordID, started, err)
	}
}

// mergeDebug combines the request stored at submission with the response
// debug data of the finished check.
func (c *Coordinator) mergeDebug(resp *check.Debug) *check.Debug {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := &check.Debug{}
	if c.state.Debug != nil {
		*merged = *c.state.Debug
	}
	if resp != nil {
		merged.Response = resp.Response
		if len(merged.Request) == 0 {
			merged.Request = resp.Request
		}
	}
	return merged
}

func (c *Coordinator) complete(gen uint64, recordID string, started time.Time, result *check.Result, debug *check.Debug) bool {
	if debug != nil {
		result.Debug = debug
	}
	ok := c.transition(gen, func(s *State) {
		s.Status = StatusCompleted
		s.Progress = 100
		s.CheckID = result.ID
		s.Result = result
		s.Debug = debug
		s.Error = ""
		s.Err = nil
	})
	if !ok {
		return false
	}

	score := result.Score
	duration := c.now().Sub(started).Milliseconds()
	c.save(context.Background(), check.Record{
		ID:         recordID,
		Status:     check.StatusCompleted,
		CheckID:    result.ID,
		Score:      &score,
		DurationMs: &duration,
		Issues:     nonNil(result.Issues),
		Goals:      nonNil(result.Goals),
		Metrics:    nonNil(result.Metrics),
	})
	return true
}

func (c *Coordinator) fail(gen uint64, recordID string, started time.Time, err error) {
	ok := c.transition(gen, func(s *State) {
		s.Status = StatusFailed
		s.Error = err.Error()
		s.Err = err
	})
	if !ok {
		return
	}
	c.logger.Warn("check failed", zap.String("record", recordID), zap.Error(err))

	duration := c.now().Sub(started).Milliseconds()
	c.save(context.Background(), check.Record{
		ID:         recordID,
		Status:     check.StatusFailed,
		DurationMs: &duration,
	})
}

// save writes rec to history, logging and swallowing any failure.
func (c *Coordinator) save(ctx context.Context, rec check.Record) {
	if c.history == nil {
		return
	}
	if err := c.history.Save(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.Warn("saving check history failed",
			zap.String("record", rec.ID),
			zap.String("status", string(rec.Status)),
			zap.Error(err),
		)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
