package flow_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/flow"
)

// stubAPI is a scriptable server double.
type stubAPI struct {
	mu          sync.Mutex
	view        flow.TransferView
	validateErr error
	pauseErr    error
	validations int
	sendCodes   int
}

func newStubAPI() *stubAPI {
	return &stubAPI{
		view: flow.TransferView{
			ID:              uuid.New(),
			Status:          "pending",
			ProgressPercent: 10,
			RequiredCodes:   1,
		},
	}
}

func (s *stubAPI) setView(mutate func(*flow.TransferView)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.view)
}

func (s *stubAPI) Initiate(ctx context.Context, req flow.InitiateRequest) (*flow.TransferView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	return &v, nil
}

func (s *stubAPI) SendCode(ctx context.Context, transferID uuid.UUID, method string) (*flow.CodeIssueView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendCodes++
	return &flow.CodeIssueView{Sequence: s.view.CodesValidated + 1, DemoCode: "424242"}, nil
}

func (s *stubAPI) sendCodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendCodes
}

func (s *stubAPI) ValidateCode(ctx context.Context, transferID uuid.UUID, code string, sequence int) (*flow.ValidationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	s.validations++
	s.view.CodesValidated = sequence
	complete := s.view.CodesValidated >= s.view.RequiredCodes
	if complete {
		s.view.Status = "in-progress"
		s.view.ProgressPercent = 90
	}
	return &flow.ValidationView{Success: true, IsComplete: complete, Progress: s.view.ProgressPercent}, nil
}

func (s *stubAPI) ValidatePauseCode(ctx context.Context, transferID uuid.UUID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pauseErr != nil {
		return s.pauseErr
	}
	s.view.IsPaused = false
	s.view.Status = "in-progress"
	return nil
}

func (s *stubAPI) Get(ctx context.Context, transferID uuid.UUID) (*flow.TransferView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	return &v, nil
}

func fastOptions() flow.Options {
	return flow.Options{
		VerificationDuration: 30 * time.Millisecond,
		ApprovedNoticeAfter:  20 * time.Millisecond,
		PollInterval:         5 * time.Millisecond,
		TickInterval:         5 * time.Millisecond,
	}
}

func newController(api flow.API) *flow.Controller {
	return flow.NewController(api, fastOptions(), slog.New(slog.DiscardHandler))
}

func TestStart_EntersVerificationThenValidation(t *testing.T) {
	api := newStubAPI()
	c := newController(api)
	defer c.Close()

	snap, err := c.Start(context.Background(), flow.InitiateRequest{
		Amount: "1200", Recipient: "acct", LoanID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, flow.StateVerification, snap.State)
	assert.NotZero(t, snap.CountdownSeconds)

	require.Eventually(t, func() bool {
		return c.Snapshot().State == flow.StateValidation
	}, time.Second, 5*time.Millisecond, "countdown should land in validation")
	assert.Zero(t, c.Snapshot().CountdownSeconds)
}

func TestVerification_ApprovedNoticeDuringCountdown(t *testing.T) {
	api := newStubAPI()
	opts := fastOptions()
	opts.VerificationDuration = time.Hour // hold the countdown open
	opts.ApprovedNoticeAfter = 20 * time.Millisecond
	c := flow.NewController(api, opts, slog.New(slog.DiscardHandler))
	defer c.Close()

	_, err := c.Start(context.Background(), flow.InitiateRequest{Amount: "1", Recipient: "a", LoanID: uuid.New()})
	require.NoError(t, err)

	// The notice fires on its own clock, well before the countdown ends.
	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return s.ApprovedNotice && s.State == flow.StateVerification
	}, time.Second, 5*time.Millisecond)
}

func TestSkipCountdown(t *testing.T) {
	api := newStubAPI()
	c := newController(api)
	defer c.Close()

	_, err := c.Start(context.Background(), flow.InitiateRequest{Amount: "1", Recipient: "a", LoanID: uuid.New()})
	require.NoError(t, err)

	snap := c.SkipCountdown()
	assert.Equal(t, flow.StateValidation, snap.State)
	assert.Zero(t, snap.CountdownSeconds)
}

func TestStart_IneligibleLoanKeepsForm(t *testing.T) {
	api := newStubAPI()
	c := newController(&failingInitiate{stubAPI: api, err: domain.ErrLoanNotEligible})
	defer c.Close()

	_, err := c.Start(context.Background(), flow.InitiateRequest{Amount: "1", Recipient: "a", LoanID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrLoanNotEligible)
	snap := c.Snapshot()
	assert.Equal(t, flow.StateForm, snap.State)
	assert.NotEmpty(t, snap.LastError)
}

type failingInitiate struct {
	*stubAPI
	err error
}

func (f *failingInitiate) Initiate(ctx context.Context, req flow.InitiateRequest) (*flow.TransferView, error) {
	return nil, f.err
}

func TestSubmitCode_WrongCodeIsRecoverable(t *testing.T) {
	api := newStubAPI()
	c := newController(api)
	defer c.Close()

	_, err := c.Start(context.Background(), flow.InitiateRequest{Amount: "1", Recipient: "a", LoanID: uuid.New()})
	require.NoError(t, err)
	c.SkipCountdown()

	api.mu.Lock()
	api.validateErr = domain.ErrInvalidCode
	api.mu.Unlock()

	_, err = c.SubmitCode(context.Background(), "000000")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	snap := c.Snapshot()
	assert.Equal(t, flow.StateValidation, snap.State, "recoverable failure keeps code entry open")
	assert.NotEmpty(t, snap.LastError)

	// A corrected entry succeeds.
	api.mu.Lock()
	api.validateErr = nil
	api.mu.Unlock()
	snap, err = c.SubmitCode(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, flow.StateProgress, snap.State)
}

func TestSubmitCode_IntermediateSuccessIssuesNextCode(t *testing.T) {
	api := newStubAPI()
	api.setView(func(v *flow.TransferView) { v.RequiredCodes = 3 })
	c := newController(api)
	defer c.Close()

	_, err := c.Start(context.Background(), flow.InitiateRequest{Amount: "1", Recipient: "a", LoanID: uuid.New()})
	require.NoError(t, err)
	c.SkipCountdown()

	snap, err := c.SubmitCode(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, flow.StateValidation, snap.State, "two sequences remain")
	assert.Equal(t, 1, snap.CodesValidated)
	assert.Equal(t, 1, api.sendCodeCount(), "next sequence's code should be issued without a manual resend")
	assert.Equal(t, "424242", snap.DemoCode)

	// The final code needs no follow-up issuance.
	_, err = c.SubmitCode(context.Background(), "123456")
	require.NoError(t, err)
	snap, err = c.SubmitCode(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, flow.StateProgress, snap.State)
	assert.Equal(t, 2, api.sendCodeCount())
	assert.Empty(t, snap.DemoCode)
}

func TestSubmitCode_UnknownTransferFails(t *testing.T) {
	api := newStubAPI()
	c := newController(api)
	defer c.Close()

	_, err := c.Start(context.Background(), flow.InitiateRequest{Amount: "1", Recipient: "a", LoanID: uuid.New()})
	require.NoError(t, err)
	c.SkipCountdown()

	api.mu.Lock()
	api.validateErr = domain.ErrTransferNotFound
	api.mu.Unlock()

	_, err = c.SubmitCode(context.Background(), "123456")
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
	assert.Equal(t, flow.StateFailed, c.Snapshot().State)
}

func TestProgress_PollsUntilComplete(t *testing.T) {
	api := newStubAPI()
	c := newController(api)
	defer c.Close()

	_, err := c.Start(context.Background(), flow.InitiateRequest{Amount: "1", Recipient: "a", LoanID: uuid.New()})
	require.NoError(t, err)
	c.SkipCountdown()

	snap, err := c.SubmitCode(context.Background(), "123456")
	require.NoError(t, err)
	require.Equal(t, flow.StateProgress, snap.State)

	// The notice raised back in verification stays visible here.
	require.Eventually(t, func() bool {
		return c.Snapshot().ApprovedNotice
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, flow.StateProgress, c.Snapshot().State)

	api.setView(func(v *flow.TransferView) {
		v.Status = "completed"
		v.ProgressPercent = 100
	})
	require.Eventually(t, func() bool {
		return c.Snapshot().State == flow.StateComplete
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 100, c.Snapshot().Progress)
}

func TestProgress_PauseDropsToCodeEntry(t *testing.T) {
	api := newStubAPI()
	c := newController(api)
	defer c.Close()

	_, err := c.Start(context.Background(), flow.InitiateRequest{Amount: "1", Recipient: "a", LoanID: uuid.New()})
	require.NoError(t, err)
	c.SkipCountdown()
	_, err = c.SubmitCode(context.Background(), "123456")
	require.NoError(t, err)

	api.setView(func(v *flow.TransferView) {
		v.IsPaused = true
		v.Status = "suspended"
	})
	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return s.State == flow.StateValidation && s.Paused
	}, time.Second, 5*time.Millisecond)

	snap, err := c.SubmitPauseCode(context.Background(), "654321")
	require.NoError(t, err)
	assert.Equal(t, flow.StateProgress, snap.State)
	assert.False(t, snap.Paused)

	api.setView(func(v *flow.TransferView) {
		v.Status = "completed"
		v.ProgressPercent = 100
	})
	require.Eventually(t, func() bool {
		return c.Snapshot().State == flow.StateComplete
	}, time.Second, 5*time.Millisecond)
}

func TestResume_MapsServerState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*flow.TransferView)
		want  flow.State
	}{
		{
			name:  "pending resumes code entry",
			setup: func(v *flow.TransferView) { v.Status = "pending"; v.CodesValidated = 1; v.RequiredCodes = 3 },
			want:  flow.StateValidation,
		},
		{
			name:  "in-progress resumes polling",
			setup: func(v *flow.TransferView) { v.Status = "in-progress"; v.ProgressPercent = 90 },
			want:  flow.StateProgress,
		},
		{
			name:  "paused resumes pause entry",
			setup: func(v *flow.TransferView) { v.Status = "suspended"; v.IsPaused = true },
			want:  flow.StateValidation,
		},
		{
			name:  "completed resumes terminal",
			setup: func(v *flow.TransferView) { v.Status = "completed"; v.ProgressPercent = 100 },
			want:  flow.StateComplete,
		},
		{
			name:  "rejected resumes failed",
			setup: func(v *flow.TransferView) { v.Status = "rejected" },
			want:  flow.StateFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newStubAPI()
			api.setView(tt.setup)
			c := newController(api)
			defer c.Close()

			snap, err := c.Resume(context.Background(), api.view.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, snap.State)
		})
	}
}

func TestUpdates_StreamsSnapshots(t *testing.T) {
	api := newStubAPI()
	c := newController(api)
	defer c.Close()

	_, err := c.Start(context.Background(), flow.InitiateRequest{Amount: "1", Recipient: "a", LoanID: uuid.New()})
	require.NoError(t, err)

	select {
	case snap := <-c.Updates():
		assert.Equal(t, flow.StateVerification, snap.State)
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
}
