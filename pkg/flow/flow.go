// Package flow drives the client-side transfer experience: a small
// state machine walking form, verification, code validation, progress
// and completion, kept in sync with the server state so a reconnecting
// client resumes exactly where it left off.
//
// The verification countdown is cosmetic pacing; only the server-side
// code expiry is authoritative. Progress values are rendered as
// received, never recomputed locally.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abensaid/lendify/pkg/domain"
)

// State is the client-side stage of the transfer flow.
type State string

const (
	// StateForm collects amount, recipient and loan.
	StateForm State = "form"
	// StateVerification shows the cosmetic countdown while the first
	// code is on its way.
	StateVerification State = "verification"
	// StateValidation accepts code entry for the next sequence.
	StateValidation State = "validation"
	// StateProgress polls the server until the deferred completion lands.
	StateProgress State = "progress"
	// StateComplete is terminal success.
	StateComplete State = "complete"
	// StateFailed is terminal failure; only unrecoverable errors land here.
	StateFailed State = "failed"
)

// Defaults for Options; production clients keep them.
const (
	DefaultVerificationDuration = 45 * time.Second
	DefaultApprovedNoticeAfter  = 20 * time.Second
	DefaultPollInterval         = 2 * time.Second
	DefaultTickInterval         = time.Second
	DefaultDeliveryMethod       = "email"
)

// Options tunes the controller's timers and the delivery method used
// when the controller issues codes on its own. Zero values take the
// defaults; tests shrink them.
type Options struct {
	VerificationDuration time.Duration
	ApprovedNoticeAfter  time.Duration
	PollInterval         time.Duration
	TickInterval         time.Duration
	DeliveryMethod       string
}

func (o *Options) fillDefaults() {
	if o.VerificationDuration <= 0 {
		o.VerificationDuration = DefaultVerificationDuration
	}
	if o.ApprovedNoticeAfter <= 0 {
		o.ApprovedNoticeAfter = DefaultApprovedNoticeAfter
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.DeliveryMethod == "" {
		o.DeliveryMethod = DefaultDeliveryMethod
	}
}

// TransferView is the server's client-facing transfer state.
type TransferView struct {
	ID              uuid.UUID
	Status          string
	ProgressPercent int
	RequiredCodes   int
	CodesValidated  int
	IsPaused        bool
	DemoCode        string
}

// NextSequence is the sequence the next code entry must target.
func (v *TransferView) NextSequence() int {
	return v.CodesValidated + 1
}

// CodeIssueView is the server response to a code re-send.
type CodeIssueView struct {
	Sequence int
	DemoCode string
}

// ValidationView is the server response to a code validation.
type ValidationView struct {
	Success    bool
	IsComplete bool
	Progress   int
}

// InitiateRequest carries the transfer form.
type InitiateRequest struct {
	Amount            string
	Recipient         string
	LoanID            uuid.UUID
	ExternalAccountID string
}

// API is the server surface the controller drives. Implemented by
// Client over HTTP and by test stubs.
type API interface {
	Initiate(ctx context.Context, req InitiateRequest) (*TransferView, error)
	SendCode(ctx context.Context, transferID uuid.UUID, method string) (*CodeIssueView, error)
	ValidateCode(ctx context.Context, transferID uuid.UUID, code string, sequence int) (*ValidationView, error)
	ValidatePauseCode(ctx context.Context, transferID uuid.UUID, code string) error
	Get(ctx context.Context, transferID uuid.UUID) (*TransferView, error)
}

// Snapshot is one observable frame of the flow.
//
// A suspended transfer surfaces as State == StateValidation with
// Paused set: pause-code entry reuses the validation stage, and Paused
// tells the client which kind of code the next entry targets.
type Snapshot struct {
	State            State
	TransferID       uuid.UUID
	Status           string
	Progress         int
	RequiredCodes    int
	CodesValidated   int
	CountdownSeconds int
	ApprovedNotice   bool
	Paused           bool
	// DemoCode carries the latest issued code when the server exposes
	// demo codes; empty otherwise.
	DemoCode  string
	LastError string
}

// Controller is the transfer flow state machine. All methods are safe
// for concurrent use; background timers publish snapshots on Updates.
type Controller struct {
	api    API
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	snap    Snapshot
	closed  bool
	stopped chan struct{}
	wg      sync.WaitGroup
	updates chan Snapshot

	// generation invalidates stale timer goroutines after a state jump.
	generation int
}

// NewController creates a controller in the form state.
func NewController(api API, opts Options, logger *slog.Logger) *Controller {
	opts.fillDefaults()
	return &Controller{
		api:     api,
		opts:    opts,
		logger:  logger.With("component", "transfer-flow"),
		snap:    Snapshot{State: StateForm},
		stopped: make(chan struct{}),
		updates: make(chan Snapshot, 64),
	}
}

// Updates streams snapshots as the flow advances. Slow consumers drop
// frames rather than block the machine.
func (c *Controller) Updates() <-chan Snapshot {
	return c.updates
}

// Snapshot returns the current frame.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Close stops background timers. The controller is unusable afterward.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.stopped)
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) publishLocked() {
	select {
	case c.updates <- c.snap:
	default:
	}
}

// Start submits the form and enters the verification countdown. The
// first code is issued server-side as part of initiation.
func (c *Controller) Start(ctx context.Context, req InitiateRequest) (Snapshot, error) {
	c.mu.Lock()
	if c.snap.State != StateForm {
		c.mu.Unlock()
		return c.Snapshot(), domain.ErrInvalidState
	}
	c.mu.Unlock()

	view, err := c.api.Initiate(ctx, req)
	if err != nil {
		if recoverable(err) || errors.Is(err, domain.ErrLoanNotEligible) {
			// The form stays up for a correction.
			c.recordError(err)
			return c.Snapshot(), err
		}
		return c.fail(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyViewLocked(view)
	c.snap.State = StateVerification
	c.snap.CountdownSeconds = int(c.opts.VerificationDuration / time.Second)
	c.snap.LastError = ""
	c.generation++
	c.startCountdownLocked(c.generation)
	c.startApprovedNoticeLocked()
	c.publishLocked()
	return c.snap, nil
}

// startApprovedNoticeLocked raises the approved notice a fixed delay
// after verification begins. The timer runs alongside the countdown
// and survives stage changes; only a terminal failure suppresses it.
func (c *Controller) startApprovedNoticeLocked() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		timer := time.NewTimer(c.opts.ApprovedNoticeAfter)
		defer timer.Stop()
		select {
		case <-c.stopped:
			return
		case <-timer.C:
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.snap.State == StateFailed {
			return
		}
		c.snap.ApprovedNotice = true
		c.publishLocked()
	}()
}

// startCountdownLocked runs the cosmetic verification timer, then flips
// to the validation stage.
func (c *Controller) startCountdownLocked(gen int) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.opts.TickInterval)
		defer ticker.Stop()
		deadline := time.Now().Add(c.opts.VerificationDuration)
		for {
			select {
			case <-c.stopped:
				return
			case now := <-ticker.C:
				c.mu.Lock()
				if c.generation != gen || c.snap.State != StateVerification {
					c.mu.Unlock()
					return
				}
				remaining := int(time.Until(deadline) / time.Second)
				if remaining < 0 {
					remaining = 0
				}
				c.snap.CountdownSeconds = remaining
				if !now.Before(deadline) {
					c.snap.State = StateValidation
					c.snap.CountdownSeconds = 0
				}
				c.publishLocked()
				done := c.snap.State != StateVerification
				c.mu.Unlock()
				if done {
					return
				}
			}
		}
	}()
}

// SkipCountdown jumps from verification straight to code entry. The
// countdown is pacing, not protocol.
func (c *Controller) SkipCountdown() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.State == StateVerification {
		c.generation++
		c.snap.State = StateValidation
		c.snap.CountdownSeconds = 0
		c.publishLocked()
	}
	return c.snap
}

// RequestCode asks the server for a fresh code for the next sequence.
func (c *Controller) RequestCode(ctx context.Context, method string) (*CodeIssueView, error) {
	c.mu.Lock()
	if c.snap.State != StateValidation {
		c.mu.Unlock()
		return nil, domain.ErrInvalidState
	}
	id := c.snap.TransferID
	c.mu.Unlock()

	view, err := c.api.SendCode(ctx, id, method)
	if err != nil {
		c.recordError(err)
		return nil, err
	}
	c.mu.Lock()
	c.snap.DemoCode = view.DemoCode
	c.snap.LastError = ""
	c.publishLocked()
	c.mu.Unlock()
	return view, nil
}

// SubmitCode validates the entered code for the next sequence. An
// intermediate success issues the following sequence's code right
// away; the final code advances the flow to progress and starts
// polling.
func (c *Controller) SubmitCode(ctx context.Context, code string) (Snapshot, error) {
	c.mu.Lock()
	if c.snap.State != StateValidation {
		c.mu.Unlock()
		return c.Snapshot(), domain.ErrInvalidState
	}
	id := c.snap.TransferID
	sequence := c.snap.CodesValidated + 1
	c.mu.Unlock()

	res, err := c.api.ValidateCode(ctx, id, code, sequence)
	if err != nil {
		if recoverable(err) {
			c.recordError(err)
			return c.Snapshot(), err
		}
		return c.fail(err)
	}

	c.mu.Lock()
	c.snap.CodesValidated = sequence
	c.snap.Progress = res.Progress
	c.snap.LastError = ""
	if res.IsComplete {
		c.snap.State = StateProgress
		c.snap.Status = "in-progress"
		c.snap.DemoCode = ""
		c.generation++
		c.startPollingLocked(c.generation)
		c.publishLocked()
		snap := c.snap
		c.mu.Unlock()
		return snap, nil
	}
	c.publishLocked()
	c.mu.Unlock()

	// More sequences remain; issue the next code immediately so the
	// user is not left waiting on a manual resend.
	issue, err := c.api.SendCode(ctx, id, c.opts.DeliveryMethod)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Warn("next code issue failed", "transferID", id, "error", err)
		c.snap.LastError = err.Error()
	} else {
		c.snap.DemoCode = issue.DemoCode
	}
	c.publishLocked()
	return c.snap, nil
}

// SubmitPauseCode sends the administrator-relayed unblock code and, on
// success, returns the flow to the progress stage.
func (c *Controller) SubmitPauseCode(ctx context.Context, code string) (Snapshot, error) {
	c.mu.Lock()
	id := c.snap.TransferID
	paused := c.snap.Paused
	c.mu.Unlock()
	if !paused {
		return c.Snapshot(), domain.ErrInvalidState
	}

	if err := c.api.ValidatePauseCode(ctx, id, code); err != nil {
		if recoverable(err) {
			c.recordError(err)
			return c.Snapshot(), err
		}
		return c.fail(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Paused = false
	c.snap.State = StateProgress
	c.snap.Status = "in-progress"
	c.snap.LastError = ""
	c.generation++
	c.startPollingLocked(c.generation)
	c.publishLocked()
	return c.snap, nil
}

// Resume rebuilds the flow from server state, for a client reconnecting
// mid-transfer.
func (c *Controller) Resume(ctx context.Context, transferID uuid.UUID) (Snapshot, error) {
	view, err := c.api.Get(ctx, transferID)
	if err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyViewLocked(view)
	c.snap.CountdownSeconds = 0
	c.snap.LastError = ""
	c.generation++

	switch {
	case view.Status == "completed":
		c.snap.State = StateComplete
	case view.Status == "rejected":
		c.snap.State = StateFailed
	case view.IsPaused:
		// Pause code entry happens in the validation stage.
		c.snap.State = StateValidation
	case view.Status == "in-progress":
		c.snap.State = StateProgress
		c.startPollingLocked(c.generation)
	default:
		c.snap.State = StateValidation
	}
	c.publishLocked()
	return c.snap, nil
}

// startPollingLocked polls the server until the transfer reaches a
// terminal status.
func (c *Controller) startPollingLocked(gen int) {
	id := c.snap.TransferID
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopped:
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.generation != gen || c.snap.State != StateProgress {
					c.mu.Unlock()
					return
				}
				c.mu.Unlock()

				ctx, cancel := context.WithTimeout(context.Background(), c.opts.PollInterval)
				view, err := c.api.Get(ctx, id)
				cancel()

				c.mu.Lock()
				if c.generation != gen || c.snap.State != StateProgress {
					c.mu.Unlock()
					return
				}
				if err != nil {
					// Transient poll errors are invisible; the next tick
					// retries.
					c.logger.Warn("poll failed", "transferID", id, "error", err)
					c.mu.Unlock()
					continue
				}
				c.applyViewLocked(view)
				if view.Status == "completed" {
					c.snap.State = StateComplete
				}
				if view.IsPaused {
					c.snap.State = StateValidation
				}
				c.publishLocked()
				done := c.snap.State != StateProgress
				c.mu.Unlock()
				if done {
					return
				}
			}
		}
	}()
}

func (c *Controller) applyViewLocked(view *TransferView) {
	c.snap.TransferID = view.ID
	c.snap.Status = view.Status
	c.snap.Progress = view.ProgressPercent
	c.snap.RequiredCodes = view.RequiredCodes
	c.snap.CodesValidated = view.CodesValidated
	c.snap.Paused = view.IsPaused
	c.snap.DemoCode = view.DemoCode
}

func (c *Controller) recordError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.LastError = err.Error()
	c.publishLocked()
}

func (c *Controller) fail(err error) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.snap.State = StateFailed
	c.snap.LastError = err.Error()
	c.publishLocked()
	return c.snap, err
}

func recoverable(err error) bool {
	return errors.Is(err, domain.ErrInvalidCode) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrSequenceOutOfOrder)
}
