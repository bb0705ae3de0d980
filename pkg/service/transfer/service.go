// Package transfer implements the outbound transfer orchestrator: it
// owns the Transfer lifecycle, issues and validates one-time codes,
// assesses fees, records the audit trail and schedules the deferred
// completion step.
//
// Mutations of one transfer are serialized through a per-transfer lock
// and an optimistic version check, so a double-submitted validation can
// never advance codesValidated twice.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/events"
	"github.com/abensaid/lendify/pkg/domain/fee"
	"github.com/abensaid/lendify/pkg/domain/notification"
	"github.com/abensaid/lendify/pkg/domain/schedule"
	"github.com/abensaid/lendify/pkg/domain/transfer"
	"github.com/abensaid/lendify/pkg/eventbus"
	"github.com/abensaid/lendify/pkg/lock"
	"github.com/abensaid/lendify/pkg/repository"
	settingssvc "github.com/abensaid/lendify/pkg/service/settings"
)

const lockTTL = 30 * time.Second

// Service orchestrates the transfer validation workflow.
type Service struct {
	uow        repository.UnitOfWork
	bus        eventbus.Bus
	settings   *settingssvc.Service
	locker     lock.Locker
	cfg        *config.Transfer
	defaultFee decimal.Decimal
	logger     *slog.Logger
}

// New creates the orchestrator. The fee fallback in cfg is parsed once;
// a malformed value falls back to 25.
func New(
	uow repository.UnitOfWork,
	bus eventbus.Bus,
	settings *settingssvc.Service,
	locker lock.Locker,
	cfg *config.Transfer,
	logger *slog.Logger,
) *Service {
	defaultFee, err := decimal.NewFromString(cfg.FeeAmount)
	if err != nil {
		logger.Warn("invalid transfer fee fallback, using 25", "value", cfg.FeeAmount)
		defaultFee = decimal.NewFromInt(25)
	}
	return &Service{
		uow:        uow,
		bus:        bus,
		settings:   settings,
		locker:     locker,
		cfg:        cfg,
		defaultFee: defaultFee,
		logger:     logger.With("service", "transfer"),
	}
}

func lockKey(transferID uuid.UUID) string {
	return "transfer:" + transferID.String()
}

// Initiate creates a transfer and, in the same transaction, issues the
// first validation code with its fee, notification and audit entry.
// The loan must be an active, contract-signed loan owned by the caller.
func (s *Service) Initiate(ctx context.Context, userID uuid.UUID, input InitiateInput) (*InitiateResult, error) {
	logger := s.logger.With("userID", userID, "loanID", input.LoanID)

	if input.Amount.Cmp(decimal.Zero) <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidState)
	}

	requiredCodes := s.settings.GetInt(ctx, settingssvc.KeyRequiredCodes, s.cfg.RequiredCodes)
	feeAmount := s.settings.GetDecimal(ctx, settingssvc.KeyFeeAmount, s.defaultFee)

	now := time.Now()
	var (
		t         *transfer.Transfer
		code      *transfer.ValidationCode
		notif     *notification.Notification
		userEmail string
	)
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		loans, err := uow.LoanRepository()
		if err != nil {
			return err
		}
		l, err := loans.GetForUser(ctx, input.LoanID, userID)
		if err != nil {
			return err
		}
		if !l.EligibleForTransfer() {
			return domain.ErrLoanNotEligible
		}

		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err := users.Get(ctx, userID)
		if err != nil {
			return err
		}
		userEmail = u.Email

		t, err = transfer.New(
			userID, input.LoanID,
			input.Amount, input.Recipient, input.ExternalAccountID,
			requiredCodes, feeAmount,
		)
		if err != nil {
			return err
		}
		transfers, err := uow.TransferRepository()
		if err != nil {
			return err
		}
		if err = transfers.Create(ctx, t); err != nil {
			return err
		}

		code, notif, err = s.issueCodeTx(ctx, uow, t, 1, s.cfg.DeliveryMethod, now)
		if err != nil {
			return err
		}

		evts, err := uow.EventRepository()
		if err != nil {
			return err
		}
		return evts.Append(ctx, transfer.NewEvent(
			t.ID, transfer.EventInitiated,
			fmt.Sprintf("Transfer of %s to %s initiated", t.Amount.StringFixed(2), t.Recipient),
			map[string]string{"loan_id": t.LoanID.String()},
		))
	})
	if err != nil {
		logger.Error("initiate failed", "error", err)
		return nil, err
	}

	s.emit(ctx, events.TransferInitiated{
		TransferID: t.ID, UserID: userID,
		Amount: t.Amount, Recipient: t.Recipient,
	})
	s.emitNotification(ctx, notif, userEmail)

	logger.Info("transfer initiated",
		"transferID", t.ID, "requiredCodes", t.RequiredCodes, "fee", t.FeeAmount)

	res := &InitiateResult{Transfer: t}
	if s.cfg.ExposeCodes {
		res.DemoCode = code.Code
	}
	return res, nil
}

// SendCode issues the code for the next pending sequence, superseding
// any active code for that position (last issued wins), with a fresh
// fee, notification and audit entry. It never mutates transfer status
// or progress.
func (s *Service) SendCode(ctx context.Context, userID, transferID uuid.UUID, method string) (*SendCodeResult, error) {
	release, ok, err := s.locker.Acquire(ctx, lockKey(transferID), lockTTL)
	if err != nil || !ok {
		return nil, domain.ErrStaleTransfer
	}
	defer release()

	if method == "" {
		method = s.cfg.DeliveryMethod
	}
	now := time.Now()

	var (
		t         *transfer.Transfer
		code      *transfer.ValidationCode
		notif     *notification.Notification
		userEmail string
	)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		transfers, err := uow.TransferRepository()
		if err != nil {
			return err
		}
		t, err = transfers.GetForUser(ctx, transferID, userID)
		if err != nil {
			return err
		}
		if t.Status != transfer.StatusPending || t.CodesExhausted() {
			return domain.ErrInvalidState
		}

		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err := users.Get(ctx, userID)
		if err != nil {
			return err
		}
		userEmail = u.Email

		code, notif, err = s.issueCodeTx(ctx, uow, t, t.NextSequence(), method, now)
		if err != nil {
			return err
		}

		evts, err := uow.EventRepository()
		if err != nil {
			return err
		}
		return evts.Append(ctx, transfer.NewEvent(
			t.ID, transfer.EventCodeSent,
			fmt.Sprintf("Validation code %d of %d sent via %s", code.Sequence, t.RequiredCodes, method),
			map[string]string{"sequence": fmt.Sprint(code.Sequence), "method": method},
		))
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.TransferCodeSent{
		TransferID: t.ID, UserID: userID,
		Sequence: code.Sequence, Method: method,
	})
	s.emitNotification(ctx, notif, userEmail)

	res := &SendCodeResult{Sequence: code.Sequence}
	if s.cfg.ExposeCodes {
		res.DemoCode = code.Code
	}
	return res, nil
}

// ValidateCode consumes the active code for the given sequence.
// Sequences must be validated strictly in order; an expired code fails
// exactly like a wrong one. Failed attempts are recorded in the audit
// trail and counted against the code; once the cap is reached the code
// is invalidated and a re-send is required.
//
// When the validation completes the required sequence, the transfer
// flips to in-progress and a durable completion job is scheduled after
// the configured delay.
func (s *Service) ValidateCode(ctx context.Context, userID, transferID uuid.UUID, code string, sequence int) (*ValidationResult, error) {
	release, ok, err := s.locker.Acquire(ctx, lockKey(transferID), lockTTL)
	if err != nil || !ok {
		return nil, domain.ErrStaleTransfer
	}
	defer release()

	now := time.Now()

	var (
		t      *transfer.Transfer
		active *transfer.ValidationCode
	)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		transfers, err := uow.TransferRepository()
		if err != nil {
			return err
		}
		t, err = transfers.GetForUser(ctx, transferID, userID)
		if err != nil {
			return err
		}
		codes, err := uow.CodeRepository()
		if err != nil {
			return err
		}
		active, err = codes.ActiveForSequence(ctx, transferID, sequence)
		return err
	})
	if err != nil {
		return nil, err
	}

	if t.Status != transfer.StatusPending {
		return nil, domain.ErrInvalidState
	}
	if sequence != t.NextSequence() {
		// Rejected regardless of code correctness: ordering is an
		// invariant, not a courtesy.
		s.recordValidationFailure(ctx, t, nil, sequence, "sequence out of order", now)
		return nil, domain.ErrSequenceOutOfOrder
	}
	if active == nil || !active.Active(now) || !active.Matches(code) {
		reason := "code mismatch"
		if active != nil && !now.Before(active.ExpiresAt) {
			reason = "code expired"
		}
		s.recordValidationFailure(ctx, t, active, sequence, reason, now)
		return nil, domain.ErrInvalidCode
	}

	var complete bool
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		codes, err := uow.CodeRepository()
		if err != nil {
			return err
		}
		active.Consume(now)
		if err = codes.Update(ctx, active); err != nil {
			return err
		}

		complete, err = t.RegisterValidation(now)
		if err != nil {
			return err
		}
		transfers, err := uow.TransferRepository()
		if err != nil {
			return err
		}
		if err = transfers.Update(ctx, t); err != nil {
			return err
		}

		evts, err := uow.EventRepository()
		if err != nil {
			return err
		}
		if err = evts.Append(ctx, transfer.NewEvent(
			t.ID, transfer.EventCodeValidated,
			fmt.Sprintf("Code %d of %d validated", sequence, t.RequiredCodes),
			map[string]string{"sequence": fmt.Sprint(sequence), "progress": fmt.Sprint(t.ProgressPercent)},
		)); err != nil {
			return err
		}
		if !complete {
			return nil
		}

		if err = evts.Append(ctx, transfer.NewEvent(
			t.ID, transfer.EventProcessing,
			"All codes validated, transfer processing",
			nil,
		)); err != nil {
			return err
		}
		jobs, err := uow.JobRepository()
		if err != nil {
			return err
		}
		return jobs.Enqueue(ctx, schedule.NewTransferCompletion(t.ID, now.Add(s.cfg.CompletionDelay)))
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.CodeValidated{
		TransferID: t.ID, Sequence: sequence,
		Progress: t.ProgressPercent, IsComplete: complete,
	})
	if complete {
		s.emit(ctx, events.TransferProcessing{TransferID: t.ID})
	}
	s.logger.Info("code validated",
		"transferID", t.ID, "sequence", sequence,
		"progress", t.ProgressPercent, "complete", complete)

	return &ValidationResult{Success: true, IsComplete: complete, Progress: t.ProgressPercent}, nil
}

// ValidatePauseCode consumes an administrator-issued unblock code and
// lifts the hold on a paused transfer. Pause codes are single-use and
// transfer-scoped.
func (s *Service) ValidatePauseCode(ctx context.Context, userID, transferID uuid.UUID, code string) error {
	release, ok, err := s.locker.Acquire(ctx, lockKey(transferID), lockTTL)
	if err != nil || !ok {
		return domain.ErrStaleTransfer
	}
	defer release()

	now := time.Now()

	var (
		t     *transfer.Transfer
		pause *transfer.ValidationCode
	)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		transfers, err := uow.TransferRepository()
		if err != nil {
			return err
		}
		t, err = transfers.GetForUser(ctx, transferID, userID)
		if err != nil {
			return err
		}
		codes, err := uow.CodeRepository()
		if err != nil {
			return err
		}
		pause, err = codes.ActivePause(ctx, transferID)
		return err
	})
	if err != nil {
		return err
	}

	if !t.IsPaused {
		return domain.ErrInvalidState
	}
	if pause == nil || !pause.Active(now) || !pause.Matches(code) {
		s.recordValidationFailure(ctx, t, pause, 0, "pause code rejected", now)
		return domain.ErrInvalidCode
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		codes, err := uow.CodeRepository()
		if err != nil {
			return err
		}
		pause.Consume(now)
		if err = codes.Update(ctx, pause); err != nil {
			return err
		}
		if err = t.Resume(); err != nil {
			return err
		}
		transfers, err := uow.TransferRepository()
		if err != nil {
			return err
		}
		if err = transfers.Update(ctx, t); err != nil {
			return err
		}
		evts, err := uow.EventRepository()
		if err != nil {
			return err
		}
		return evts.Append(ctx, transfer.NewEvent(
			t.ID, transfer.EventResumed, "Hold lifted, transfer resumed", nil,
		))
	})
	if err != nil {
		return err
	}

	s.emit(ctx, events.TransferResumed{TransferID: t.ID})
	s.logger.Info("transfer resumed", "transferID", t.ID)
	return nil
}

// Get returns the transfer with its audit trail and issued codes for
// the owning user. Code values are masked unless exposure is enabled.
func (s *Service) Get(ctx context.Context, userID, transferID uuid.UUID) (*Detail, error) {
	var detail Detail
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		transfers, err := uow.TransferRepository()
		if err != nil {
			return err
		}
		detail.Transfer, err = transfers.GetForUser(ctx, transferID, userID)
		if err != nil {
			return err
		}
		evts, err := uow.EventRepository()
		if err != nil {
			return err
		}
		detail.Events, err = evts.ListForTransfer(ctx, transferID)
		if err != nil {
			return err
		}
		codes, err := uow.CodeRepository()
		if err != nil {
			return err
		}
		detail.Codes, err = codes.ListForTransfer(ctx, transferID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !s.cfg.ExposeCodes {
		masked := make([]*transfer.ValidationCode, len(detail.Codes))
		for i, c := range detail.Codes {
			cc := *c
			cc.Code = ""
			masked[i] = &cc
		}
		detail.Codes = masked
	}
	return &detail, nil
}

// List returns the caller's transfers, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*transfer.Transfer, error) {
	var out []*transfer.Transfer
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		transfers, err := uow.TransferRepository()
		if err != nil {
			return err
		}
		out, err = transfers.ListForUser(ctx, userID)
		return err
	})
	return out, err
}

// Complete finalizes a fully-validated transfer. Invoked by the
// completion worker when the scheduled job comes due. Returns
// domain.ErrTransferPaused while a hold is in place so the worker can
// reschedule.
func (s *Service) Complete(ctx context.Context, transferID uuid.UUID) error {
	release, ok, err := s.locker.Acquire(ctx, lockKey(transferID), lockTTL)
	if err != nil || !ok {
		return domain.ErrStaleTransfer
	}
	defer release()

	now := time.Now()
	var t *transfer.Transfer
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		transfers, err := uow.TransferRepository()
		if err != nil {
			return err
		}
		t, err = transfers.Get(ctx, transferID)
		if err != nil {
			return err
		}
		if t.Status == transfer.StatusCompleted {
			return nil
		}
		if err = t.Complete(now); err != nil {
			return err
		}
		if err = transfers.Update(ctx, t); err != nil {
			return err
		}
		evts, err := uow.EventRepository()
		if err != nil {
			return err
		}
		return evts.Append(ctx, transfer.NewEvent(
			t.ID, transfer.EventCompleted, "Transfer completed", nil,
		))
	})
	if err != nil {
		return err
	}

	s.emit(ctx, events.TransferCompleted{TransferID: t.ID})
	s.logger.Info("transfer completed", "transferID", t.ID)
	return nil
}

// Suspend places an administrative hold on an in-progress transfer at
// its current progress value. Admin scope: no owner check.
func (s *Service) Suspend(ctx context.Context, transferID uuid.UUID) error {
	release, ok, err := s.locker.Acquire(ctx, lockKey(transferID), lockTTL)
	if err != nil || !ok {
		return domain.ErrStaleTransfer
	}
	defer release()

	var t *transfer.Transfer
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		transfers, err := uow.TransferRepository()
		if err != nil {
			return err
		}
		t, err = transfers.Get(ctx, transferID)
		if err != nil {
			return err
		}
		if err = t.Suspend(); err != nil {
			return err
		}
		if err = transfers.Update(ctx, t); err != nil {
			return err
		}
		evts, err := uow.EventRepository()
		if err != nil {
			return err
		}
		return evts.Append(ctx, transfer.NewEvent(
			t.ID, transfer.EventPaused,
			fmt.Sprintf("Hold placed at %d%%", t.ProgressPercent),
			map[string]string{"pause_percent": fmt.Sprint(*t.PausePercent)},
		))
	})
	if err != nil {
		return err
	}

	s.emit(ctx, events.TransferPaused{TransferID: t.ID, PausePercent: *t.PausePercent})
	s.logger.Info("transfer suspended", "transferID", t.ID, "pausePercent", *t.PausePercent)
	return nil
}

// IssuePauseCode generates the out-of-band unblock code for a paused
// transfer and returns its raw value to the administrator, who relays
// it to the customer through a support channel. Any previous pause code
// is superseded.
func (s *Service) IssuePauseCode(ctx context.Context, transferID uuid.UUID) (string, error) {
	now := time.Now()
	var code *transfer.ValidationCode
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		transfers, err := uow.TransferRepository()
		if err != nil {
			return err
		}
		t, err := transfers.Get(ctx, transferID)
		if err != nil {
			return err
		}
		if !t.IsPaused {
			return domain.ErrInvalidState
		}
		codes, err := uow.CodeRepository()
		if err != nil {
			return err
		}
		if prev, err := codes.ActivePause(ctx, transferID); err != nil {
			return err
		} else if prev != nil {
			prev.Supersede(now)
			if err := codes.Update(ctx, prev); err != nil {
				return err
			}
		}
		code = transfer.NewCode(transferID, 0, transfer.CodeKindPause, "manual", now, s.cfg.CodeTTL)
		return codes.Create(ctx, code)
	})
	if err != nil {
		return "", err
	}
	return code.Code, nil
}

// issueCodeTx writes one code issuance unit inside the caller's
// transaction: supersede the previous code for the sequence, store the
// new code, charge the validation fee and record the notification.
func (s *Service) issueCodeTx(
	ctx context.Context,
	uow repository.UnitOfWork,
	t *transfer.Transfer,
	sequence int,
	method string,
	now time.Time,
) (*transfer.ValidationCode, *notification.Notification, error) {
	codes, err := uow.CodeRepository()
	if err != nil {
		return nil, nil, err
	}
	if err = codes.SupersedeSequence(ctx, t.ID, sequence, now); err != nil {
		return nil, nil, err
	}
	code := transfer.NewCode(t.ID, sequence, transfer.CodeKindStep, method, now, s.cfg.CodeTTL)
	if err = codes.Create(ctx, code); err != nil {
		return nil, nil, err
	}

	fees, err := uow.FeeRepository()
	if err != nil {
		return nil, nil, err
	}
	reason := fmt.Sprintf("Validation fee for transfer to %s (code %d of %d)", t.Recipient, sequence, t.RequiredCodes)
	if err = fees.Create(ctx, fee.NewValidationFee(t.UserID, t.ID, sequence, t.FeeAmount, reason)); err != nil {
		return nil, nil, err
	}

	notifs, err := uow.NotificationRepository()
	if err != nil {
		return nil, nil, err
	}
	n := notification.New(
		t.UserID,
		"Transfer validation code",
		fmt.Sprintf("Your validation code %d of %d is %s. It expires in %d minutes.",
			sequence, t.RequiredCodes, code.Code, int(code.ExpiresAt.Sub(now).Minutes())),
		notification.ChannelEmail,
	)
	if err = notifs.Create(ctx, n); err != nil {
		return nil, nil, err
	}
	return code, n, nil
}

// recordValidationFailure persists the failed attempt outside the
// mutating transaction so the audit entry survives the rejection. The
// attempt counter on the active code is bumped and, once the cap is
// reached, the code is invalidated.
func (s *Service) recordValidationFailure(
	ctx context.Context,
	t *transfer.Transfer,
	active *transfer.ValidationCode,
	sequence int,
	reason string,
	now time.Time,
) {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		if active != nil {
			active.Attempts++
			if active.Attempts >= s.cfg.MaxAttempts {
				active.Supersede(now)
			}
			codes, err := uow.CodeRepository()
			if err != nil {
				return err
			}
			if err := codes.Update(ctx, active); err != nil {
				return err
			}
		}
		evts, err := uow.EventRepository()
		if err != nil {
			return err
		}
		return evts.Append(ctx, transfer.NewEvent(
			t.ID, transfer.EventValidationFailed,
			fmt.Sprintf("Validation failed: %s", reason),
			map[string]string{"sequence": fmt.Sprint(sequence), "reason": reason},
		))
	})
	if err != nil {
		s.logger.Error("recording validation failure failed", "transferID", t.ID, "error", err)
	}
	s.emit(ctx, events.ValidationFailed{TransferID: t.ID, Sequence: sequence, Reason: reason})
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if err := s.bus.Emit(ctx, event); err != nil {
		s.logger.Error("event emit failed", "type", event.Type(), "error", err)
	}
}

// emitNotification forwards the stored notification to the email path.
// Delivery is fire-and-forget and never fails the request.
func (s *Service) emitNotification(ctx context.Context, n *notification.Notification, email string) {
	s.emit(ctx, events.NotificationQueued{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Email:          email,
		Title:          n.Title,
		Body:           n.Body,
	})
}

// IsRecoverable reports whether the client may retry after err by
// re-entering or re-requesting a code.
func IsRecoverable(err error) bool {
	return errors.Is(err, domain.ErrInvalidCode) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrSequenceOutOfOrder)
}
