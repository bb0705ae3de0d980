package transfer_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abensaid/lendify/internal/fixtures"
	"github.com/abensaid/lendify/pkg/cache"
	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/events"
	"github.com/abensaid/lendify/pkg/domain/loan"
	"github.com/abensaid/lendify/pkg/domain/schedule"
	domaintransfer "github.com/abensaid/lendify/pkg/domain/transfer"
	"github.com/abensaid/lendify/pkg/domain/user"
	"github.com/abensaid/lendify/pkg/lock"
	settingssvc "github.com/abensaid/lendify/pkg/service/settings"
	"github.com/abensaid/lendify/pkg/service/transfer"
)

type testEnv struct {
	svc      *transfer.Service
	settings *settingssvc.Service
	uow      *fixtures.UoW
	bus      *fixtures.Bus
	cfg      *config.Transfer
	userID   uuid.UUID
	loanID   uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	uow := fixtures.NewUoW()
	bus := fixtures.NewBus()
	cfg := &config.Transfer{
		RequiredCodes:   1,
		FeeAmount:       "25",
		CodeTTL:         15 * time.Minute,
		CompletionDelay: 5 * time.Second,
		MaxAttempts:     5,
		DeliveryMethod:  "email",
		ExposeCodes:     true,
	}
	settings := settingssvc.New(uow, cache.NewMemory(), logger)
	svc := transfer.New(uow, bus, settings, lock.NewMemory(), cfg, logger)

	u, err := user.New("aisha", "aisha@example.com", "s3cret-pass")
	require.NoError(t, err)
	uow.SeedUser(u)

	signed := time.Now().Add(-24 * time.Hour)
	l := &loan.Loan{
		ID:               uuid.New(),
		UserID:           u.ID,
		Amount:           decimal.NewFromInt(10_000),
		Status:           loan.StatusActive,
		ContractSignedAt: &signed,
	}
	uow.SeedLoan(l)

	return &testEnv{
		svc: svc, settings: settings, uow: uow, bus: bus, cfg: cfg,
		userID: u.ID, loanID: l.ID,
	}
}

func (e *testEnv) initiate(t *testing.T) *transfer.InitiateResult {
	t.Helper()
	res, err := e.svc.Initiate(context.Background(), e.userID, transfer.InitiateInput{
		Amount:    decimal.NewFromInt(1200),
		Recipient: "GB29NWBK60161331926819",
		LoanID:    e.loanID,
	})
	require.NoError(t, err)
	return res
}

func TestInitiate_SeedsPendingTransferWithFirstCode(t *testing.T) {
	env := newTestEnv(t)

	res := env.initiate(t)

	tr := res.Transfer
	assert.Equal(t, domaintransfer.StatusPending, tr.Status)
	assert.Equal(t, 10, tr.ProgressPercent)
	assert.Equal(t, 1, tr.RequiredCodes)
	assert.Equal(t, 0, tr.CodesValidated)
	assert.True(t, tr.FeeAmount.Equal(decimal.NewFromInt(25)))
	assert.Len(t, res.DemoCode, 6)

	// One fee and one notification per issuance, starting at initiation.
	fees := env.uow.Fees()
	require.Len(t, fees, 1)
	assert.Equal(t, tr.ID.String(), fees[0].Metadata["transfer_id"])
	assert.Equal(t, "1", fees[0].Metadata["sequence"])
	require.Len(t, env.uow.Notifications(), 1)
	assert.Contains(t, env.uow.Notifications()[0].Body, res.DemoCode)

	assert.Len(t, env.bus.EmittedOfType(events.EventTransferInitiated), 1)
	assert.Len(t, env.bus.EmittedOfType(events.EventNotificationQueued), 1)
}

func TestInitiate_CodeExpiryFollowsConfiguredTTL(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.CodeTTL = 3 * time.Minute

	before := time.Now()
	env.initiate(t)

	codes := env.uow.Codes()
	require.Len(t, codes, 1)
	assert.WithinDuration(t, before.Add(3*time.Minute), codes[0].ExpiresAt, time.Second)
	// The notification quotes the configured window, not the default.
	require.Len(t, env.uow.Notifications(), 1)
	assert.Contains(t, env.uow.Notifications()[0].Body, "expires in 3 minutes")
}

func TestInitiate_RejectsIneligibleLoan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending := &loan.Loan{
		ID:     uuid.New(),
		UserID: env.userID,
		Amount: decimal.NewFromInt(5000),
		Status: loan.StatusPending,
	}
	env.uow.SeedLoan(pending)

	_, err := env.svc.Initiate(ctx, env.userID, transfer.InitiateInput{
		Amount:    decimal.NewFromInt(100),
		Recipient: "acct-1",
		LoanID:    pending.ID,
	})
	assert.ErrorIs(t, err, domain.ErrLoanNotEligible)

	// A loan belonging to someone else resolves the same way.
	_, err = env.svc.Initiate(ctx, uuid.New(), transfer.InitiateInput{
		Amount:    decimal.NewFromInt(100),
		Recipient: "acct-1",
		LoanID:    env.loanID,
	})
	assert.ErrorIs(t, err, domain.ErrLoanNotEligible)
}

func TestInitiate_ReadsAdminSettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.settings.Set(ctx, settingssvc.KeyRequiredCodes, "3"))
	require.NoError(t, env.settings.Set(ctx, settingssvc.KeyFeeAmount, "40.50"))

	res := env.initiate(t)
	assert.Equal(t, 3, res.Transfer.RequiredCodes)
	assert.True(t, res.Transfer.FeeAmount.Equal(decimal.RequireFromString("40.50")))
	assert.True(t, env.uow.Fees()[0].Amount.Equal(decimal.RequireFromString("40.50")))
}

func TestValidateCode_SingleCodeCompletesAndSchedules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.initiate(t)
	id := res.Transfer.ID

	vr, err := env.svc.ValidateCode(ctx, env.userID, id, res.DemoCode, 1)
	require.NoError(t, err)
	assert.True(t, vr.Success)
	assert.True(t, vr.IsComplete)
	assert.Equal(t, 90, vr.Progress)

	detail, err := env.svc.Get(ctx, env.userID, id)
	require.NoError(t, err)
	assert.Equal(t, domaintransfer.StatusInProgress, detail.Transfer.Status)
	assert.NotNil(t, detail.Transfer.ApprovedAt)

	jobs := env.uow.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, schedule.JobTransferComplete, jobs[0].Type)
	assert.Equal(t, id, jobs[0].EntityID)
	assert.WithinDuration(t, time.Now().Add(5*time.Second), jobs[0].DueAt, time.Second)

	require.NoError(t, env.svc.Complete(ctx, id))
	detail, err = env.svc.Get(ctx, env.userID, id)
	require.NoError(t, err)
	assert.Equal(t, domaintransfer.StatusCompleted, detail.Transfer.Status)
	assert.Equal(t, 100, detail.Transfer.ProgressPercent)
	assert.NotNil(t, detail.Transfer.CompletedAt)

	// Completing again is a no-op.
	require.NoError(t, env.svc.Complete(ctx, id))
	assert.Len(t, env.bus.EmittedOfType(events.EventTransferCompleted), 1)
}

func TestValidateCode_ThreeCodeStaircase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.settings.Set(ctx, settingssvc.KeyRequiredCodes, "3"))

	res := env.initiate(t)
	id := res.Transfer.ID

	wantProgress := []int{36, 62, 88}
	code := res.DemoCode
	for i := 0; i < 3; i++ {
		seq := i + 1
		vr, err := env.svc.ValidateCode(ctx, env.userID, id, code, seq)
		require.NoError(t, err, "sequence %d", seq)
		assert.Equal(t, wantProgress[i], vr.Progress, "sequence %d", seq)
		assert.Equal(t, seq == 3, vr.IsComplete, "sequence %d", seq)

		if seq < 3 {
			sent, err := env.svc.SendCode(ctx, env.userID, id, "")
			require.NoError(t, err)
			assert.Equal(t, seq+1, sent.Sequence)
			code = sent.DemoCode
		}
	}

	detail, err := env.svc.Get(ctx, env.userID, id)
	require.NoError(t, err)
	assert.Equal(t, domaintransfer.StatusInProgress, detail.Transfer.Status)
	assert.Equal(t, 3, detail.Transfer.CodesValidated)

	// Three issuances, three fees.
	assert.Len(t, env.uow.Fees(), 3)
}

func TestValidateCode_ExpiredCodeFailsLikeWrongCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.initiate(t)
	id := res.Transfer.ID

	codes, err := env.uow.CodeRepository()
	require.NoError(t, err)
	active, err := codes.ActiveForSequence(ctx, id, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	active.ExpiresAt = time.Now().Add(-time.Minute)

	_, err = env.svc.ValidateCode(ctx, env.userID, id, res.DemoCode, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	// Progress is untouched and the failure is in the audit trail.
	detail, err := env.svc.Get(ctx, env.userID, id)
	require.NoError(t, err)
	assert.Equal(t, 0, detail.Transfer.CodesValidated)
	assert.Equal(t, 10, detail.Transfer.ProgressPercent)
	var types []domaintransfer.EventType
	for _, e := range detail.Events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, domaintransfer.EventValidationFailed)
	assert.Len(t, env.bus.EmittedOfType(events.EventValidationFailed), 1)

	// No new fee was charged for the failure.
	assert.Len(t, env.uow.Fees(), 1)
}

func TestValidateCode_RejectsOutOfOrderSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.settings.Set(ctx, settingssvc.KeyRequiredCodes, "2"))

	res := env.initiate(t)

	_, err := env.svc.ValidateCode(ctx, env.userID, res.Transfer.ID, res.DemoCode, 2)
	assert.ErrorIs(t, err, domain.ErrSequenceOutOfOrder)

	detail, err := env.svc.Get(ctx, env.userID, res.Transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, detail.Transfer.CodesValidated)
}

func TestSendCode_LastIssuedWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.initiate(t)
	id := res.Transfer.ID
	first := res.DemoCode

	sent, err := env.svc.SendCode(ctx, env.userID, id, "sms")
	require.NoError(t, err)
	assert.Equal(t, 1, sent.Sequence)

	// The superseded code no longer validates, the fresh one does.
	_, err = env.svc.ValidateCode(ctx, env.userID, id, first, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	vr, err := env.svc.ValidateCode(ctx, env.userID, id, sent.DemoCode, 1)
	require.NoError(t, err)
	assert.True(t, vr.IsComplete)

	// Both issuances were charged.
	assert.Len(t, env.uow.Fees(), 2)
}

func TestSendCode_RefusedAfterSequenceExhausted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.initiate(t)
	id := res.Transfer.ID
	_, err := env.svc.ValidateCode(ctx, env.userID, id, res.DemoCode, 1)
	require.NoError(t, err)

	_, err = env.svc.SendCode(ctx, env.userID, id, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// No code, fee or notification leaked out of the refusal.
	assert.Len(t, env.uow.Fees(), 1)
	assert.Len(t, env.uow.Notifications(), 1)
}

func TestValidateCode_AttemptCapInvalidatesCode(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.MaxAttempts = 3
	ctx := context.Background()

	res := env.initiate(t)
	id := res.Transfer.ID

	for i := 0; i < 3; i++ {
		_, err := env.svc.ValidateCode(ctx, env.userID, id, "000000", 1)
		assert.ErrorIs(t, err, domain.ErrInvalidCode)
	}

	codes, err := env.uow.CodeRepository()
	require.NoError(t, err)
	active, err := codes.ActiveForSequence(ctx, id, 1)
	require.NoError(t, err)
	assert.Nil(t, active, "code should be invalidated after the attempt cap")

	// Even the correct value is refused now; a re-send is required.
	_, err = env.svc.ValidateCode(ctx, env.userID, id, res.DemoCode, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	sent, err := env.svc.SendCode(ctx, env.userID, id, "")
	require.NoError(t, err)
	vr, err := env.svc.ValidateCode(ctx, env.userID, id, sent.DemoCode, 1)
	require.NoError(t, err)
	assert.True(t, vr.IsComplete)
}

func TestPauseAndResumeFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.initiate(t)
	id := res.Transfer.ID
	_, err := env.svc.ValidateCode(ctx, env.userID, id, res.DemoCode, 1)
	require.NoError(t, err)

	require.NoError(t, env.svc.Suspend(ctx, id))
	detail, err := env.svc.Get(ctx, env.userID, id)
	require.NoError(t, err)
	assert.Equal(t, domaintransfer.StatusSuspended, detail.Transfer.Status)
	assert.True(t, detail.Transfer.IsPaused)
	require.NotNil(t, detail.Transfer.PausePercent)
	assert.Equal(t, 90, *detail.Transfer.PausePercent)

	// The completion worker must back off while the hold is in place.
	assert.ErrorIs(t, env.svc.Complete(ctx, id), domain.ErrTransferPaused)

	pauseCode, err := env.svc.IssuePauseCode(ctx, id)
	require.NoError(t, err)
	require.Len(t, pauseCode, 6)

	assert.ErrorIs(t, env.svc.ValidatePauseCode(ctx, env.userID, id, "000000"), domain.ErrInvalidCode)
	require.NoError(t, env.svc.ValidatePauseCode(ctx, env.userID, id, pauseCode))

	detail, err = env.svc.Get(ctx, env.userID, id)
	require.NoError(t, err)
	assert.Equal(t, domaintransfer.StatusInProgress, detail.Transfer.Status)
	assert.False(t, detail.Transfer.IsPaused)
	assert.Nil(t, detail.Transfer.PausePercent)

	// Pause codes are single-use.
	assert.ErrorIs(t, env.svc.ValidatePauseCode(ctx, env.userID, id, pauseCode), domain.ErrInvalidState)

	require.NoError(t, env.svc.Complete(ctx, id))
	assert.Len(t, env.bus.EmittedOfType(events.EventTransferResumed), 1)
}

func TestIssuePauseCode_SupersedesPrevious(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.initiate(t)
	id := res.Transfer.ID
	_, err := env.svc.ValidateCode(ctx, env.userID, id, res.DemoCode, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Suspend(ctx, id))

	first, err := env.svc.IssuePauseCode(ctx, id)
	require.NoError(t, err)
	second, err := env.svc.IssuePauseCode(ctx, id)
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.ValidatePauseCode(ctx, env.userID, id, first), domain.ErrInvalidCode)
	require.NoError(t, env.svc.ValidatePauseCode(ctx, env.userID, id, second))
}

func TestGet_MasksCodesUnlessExposed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.initiate(t)

	detail, err := env.svc.Get(ctx, env.userID, res.Transfer.ID)
	require.NoError(t, err)
	require.Len(t, detail.Codes, 1)
	assert.Equal(t, res.DemoCode, detail.Codes[0].Code)

	env.cfg.ExposeCodes = false
	detail, err = env.svc.Get(ctx, env.userID, res.Transfer.ID)
	require.NoError(t, err)
	require.Len(t, detail.Codes, 1)
	assert.Empty(t, detail.Codes[0].Code)

	// Masking copies; the stored code keeps its value.
	codes, err := env.uow.CodeRepository()
	require.NoError(t, err)
	stored, err := codes.ActiveForSequence(ctx, res.Transfer.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, res.DemoCode, stored.Code)
}

func TestGet_CarriesResumableState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.settings.Set(ctx, settingssvc.KeyRequiredCodes, "3"))

	res := env.initiate(t)
	id := res.Transfer.ID
	_, err := env.svc.ValidateCode(ctx, env.userID, id, res.DemoCode, 1)
	require.NoError(t, err)

	// Everything a reconnecting client needs to resume mid-flow.
	detail, err := env.svc.Get(ctx, env.userID, id)
	require.NoError(t, err)
	assert.Equal(t, domaintransfer.StatusPending, detail.Transfer.Status)
	assert.Equal(t, 1, detail.Transfer.CodesValidated)
	assert.Equal(t, 2, detail.Transfer.NextSequence())
	assert.Equal(t, 36, detail.Transfer.ProgressPercent)
	assert.NotEmpty(t, detail.Events)
}

func TestGet_UnknownTransfer(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Get(context.Background(), env.userID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
}

func TestList_ReturnsOwnTransfersOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.initiate(t)
	env.initiate(t)

	out, err := env.svc.List(ctx, env.userID)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = env.svc.List(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, transfer.IsRecoverable(domain.ErrInvalidCode))
	assert.True(t, transfer.IsRecoverable(domain.ErrInvalidState))
	assert.True(t, transfer.IsRecoverable(domain.ErrSequenceOutOfOrder))
	assert.False(t, transfer.IsRecoverable(domain.ErrTransferNotFound))
	assert.False(t, transfer.IsRecoverable(domain.ErrTransferPaused))
}

func TestAuditTrailOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.initiate(t)
	id := res.Transfer.ID
	_, err := env.svc.ValidateCode(ctx, env.userID, id, res.DemoCode, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Complete(ctx, id))

	detail, err := env.svc.Get(ctx, env.userID, id)
	require.NoError(t, err)

	var got []string
	for _, e := range detail.Events {
		got = append(got, string(e.Type))
	}
	want := []string{"initiated", "code_validated", "processing", "completed"}
	assert.Equal(t, want, got)

	// Validation events carry the sequence in metadata.
	for _, e := range detail.Events {
		if e.Type == domaintransfer.EventCodeValidated {
			assert.Equal(t, "1", e.Metadata["sequence"])
			assert.Equal(t, "90", e.Metadata["progress"])
		}
	}
}
