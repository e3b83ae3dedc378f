package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/metinatakli/hospital-payments/internal/domain"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	lockKeyPrefix    = "payment_lock:"
	lockTTLMargin    = 5 * time.Second
	lockPollInterval = 50 * time.Millisecond

	cancelledByPayer = "cancelled by payer"
)

type PaymentConfig struct {
	Currency       string
	PaymentMethod  string
	ReturnURL      string
	CancelURL      string
	GatewayTimeout time.Duration
	LockWait       time.Duration
}

type CreatePaymentInput struct {
	AppointmentID int
	UserID        int
	Amount        decimal.Decimal
}

type PaymentCheckout struct {
	Payment     *domain.Payment
	ApprovalURL string
	Simulated   bool
}

// ExecuteInput identifies the payment either by id or by the approval
// reference the gateway handed out. When both are set they must agree.
type ExecuteInput struct {
	PaymentID         int
	Token             string
	PayerConfirmation string
}

type ExecuteResult struct {
	Payment          *domain.Payment
	AlreadyCompleted bool
}

type PaymentService struct {
	cfg          PaymentConfig
	logger       *slog.Logger
	payments     domain.PaymentRepository
	appointments domain.AppointmentRepository
	users        domain.UserRepository
	doctors      domain.DoctorRepository
	gateway      domain.PaymentGateway
	locker       domain.Locker
	synchronizer *AppointmentSynchronizer
	publisher    domain.EventPublisher
	metrics      instruments
}

func NewPaymentService(
	cfg PaymentConfig,
	logger *slog.Logger,
	payments domain.PaymentRepository,
	appointments domain.AppointmentRepository,
	users domain.UserRepository,
	doctors domain.DoctorRepository,
	gateway domain.PaymentGateway,
	locker domain.Locker,
	synchronizer *AppointmentSynchronizer,
	publisher domain.EventPublisher) *PaymentService {

	return &PaymentService{
		cfg:          cfg,
		logger:       logger,
		payments:     payments,
		appointments: appointments,
		users:        users,
		doctors:      doctors,
		gateway:      gateway,
		locker:       locker,
		synchronizer: synchronizer,
		publisher:    publisher,
		metrics:      newInstruments(),
	}
}

func (s *PaymentService) Create(ctx context.Context, input CreatePaymentInput) (*PaymentCheckout, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	appointment, err := s.appointments.GetById(ctx, input.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointment %d: %w", input.AppointmentID, err)
	}

	// other patients' appointments are reported as missing
	if appointment.PatientID != input.UserID {
		return nil, domain.ErrRecordNotFound
	}

	if appointment.Status == domain.AppointmentStatusCancelled {
		return nil, fmt.Errorf("%w: appointment %d is cancelled", domain.ErrInvalidState, appointment.ID)
	}

	user, err := s.users.GetById(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", input.UserID, err)
	}

	doctor, err := s.doctors.GetById(ctx, appointment.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load doctor %d: %w", appointment.DoctorID, err)
	}

	payment := &domain.Payment{
		AppointmentID: appointment.ID,
		UserID:        input.UserID,
		Amount:        input.Amount,
		Currency:      s.cfg.Currency,
		Status:        domain.PaymentStatusPending,
		PaymentMethod: s.cfg.PaymentMethod,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	logger := s.logger.With("payment_id", payment.ID, "appointment_id", payment.AppointmentID)

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	charge, err := s.gateway.CreateCharge(gatewayCtx, domain.ChargeRequest{
		PaymentID:     payment.ID,
		AppointmentID: appointment.ID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Description:   appointment.ServiceDescription(doctor),
		ReturnURL:     s.cfg.ReturnURL,
		CancelURL:     s.cfg.CancelURL,
		CustomerEmail: user.Email,
	})
	cancel()

	if err != nil {
		gwErr := asGatewayError("create", err)
		logger.Error("failed to create checkout", "error", gwErr)

		// the payment stays PENDING without a provider reference
		recordErr := s.payments.RecordError(context.WithoutCancel(ctx), payment.ID, "checkout could not be created: "+gwErr.Err.Error())
		if recordErr != nil {
			return nil, errors.Join(gwErr, recordErr)
		}

		return nil, gwErr
	}

	if charge.Simulated {
		logger.Warn("simulated checkout issued, no real money will move", "reference", charge.ApprovalReference)
	}

	err = s.payments.SetProviderPaymentId(ctx, payment.ID, charge.ApprovalReference)
	if err != nil {
		return nil, fmt.Errorf("failed to store approval reference for payment %d: %w", payment.ID, err)
	}

	payment.ProviderPaymentID = &charge.ApprovalReference

	logger.Info("payment created", "amount", payment.Amount.StringFixed(2), "currency", payment.Currency)

	return &PaymentCheckout{
		Payment:     payment,
		ApprovalURL: charge.ApprovalURL,
		Simulated:   charge.Simulated,
	}, nil
}

// Execute captures the charge of a PENDING payment. Executing a COMPLETED
// payment returns its stored state without contacting the gateway.
func (s *PaymentService) Execute(ctx context.Context, input ExecuteInput) (*ExecuteResult, error) {
	payment, err := s.resolve(ctx, input)
	if err != nil {
		return nil, err
	}

	if result, settled, err := executeOutcome(payment); settled {
		return result, err
	}

	unlock, err := s.lock(ctx, payment.ID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentInProgress) {
			return s.awaitSettlement(ctx, payment.ID)
		}

		return nil, err
	}
	defer unlock()

	payment, err = s.payments.GetById(ctx, payment.ID)
	if err != nil {
		return nil, err
	}

	if result, settled, err := executeOutcome(payment); settled {
		return result, err
	}

	return s.capture(ctx, payment, input.PayerConfirmation)
}

func (s *PaymentService) capture(ctx context.Context, payment *domain.Payment, confirmation string) (*ExecuteResult, error) {
	logger := s.logger.With("payment_id", payment.ID, "appointment_id", payment.AppointmentID)

	if payment.ProviderPaymentID == nil {
		return nil, fmt.Errorf("%w: payment %d has no approval reference", domain.ErrInvalidState, payment.ID)
	}

	paid, err := s.payments.HasCompletedForAppointment(ctx, payment.AppointmentID)
	if err != nil {
		return nil, err
	}

	if paid {
		logger.Warn("appointment already paid by another payment")

		failed, err := s.payments.Fail(ctx, payment.ID, domain.ErrAlreadyPaid.Error())
		if err != nil {
			return nil, err
		}

		s.recordExecution(ctx, "already_paid")
		s.publish(ctx, domain.EventPaymentFailed, failed)

		return nil, domain.ErrAlreadyPaid
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	captured, err := s.gateway.CaptureCharge(gatewayCtx, domain.CaptureRequest{
		Reference:         *payment.ProviderPaymentID,
		PayerConfirmation: confirmation,
		IdempotencyKey:    "capture-payment-" + strconv.Itoa(payment.ID),
	})
	cancel()

	if err != nil {
		gwErr := asGatewayError("capture", err)

		switch gwErr.Kind {
		case domain.GatewayPending:
			logger.Info("charge not paid yet, payment left pending", "error", gwErr)
			s.recordExecution(ctx, "awaiting_payer")
			return nil, gwErr
		case domain.GatewayUnavailable:
			logger.Error("capture failed, payment left pending", "error", gwErr)
			s.recordExecution(ctx, "gateway_error")
			return nil, gwErr
		}

		logger.Warn("payment declined", "error", gwErr)

		failed, failErr := s.payments.Fail(context.WithoutCancel(ctx), payment.ID, gwErr.Err.Error())
		if failErr != nil {
			return nil, errors.Join(gwErr, failErr)
		}

		s.recordExecution(ctx, "declined")
		s.publish(ctx, domain.EventPaymentFailed, failed)

		return &ExecuteResult{Payment: failed}, fmt.Errorf("%w: %w", domain.ErrPaymentDeclined, gwErr)
	}

	// money has moved; the outcome must be persisted even if the caller went away
	persistCtx := context.WithoutCancel(ctx)

	completed, err := s.payments.Complete(persistCtx, payment.ID, captured.TransactionID)
	if err != nil {
		return s.handleCompleteConflict(persistCtx, logger, payment, captured.TransactionID, err)
	}

	logger.Info("payment completed", "transaction_id", captured.TransactionID)
	s.recordExecution(ctx, "completed")

	if err := s.synchronizer.OnPaymentCompleted(persistCtx, completed.AppointmentID); err != nil {
		logger.Error("failed to synchronize appointment", "error", err)
	}

	s.publish(persistCtx, domain.EventPaymentCompleted, completed)

	return &ExecuteResult{Payment: completed}, nil
}

func (s *PaymentService) handleCompleteConflict(
	ctx context.Context,
	logger *slog.Logger,
	payment *domain.Payment,
	transactionID string,
	err error) (*ExecuteResult, error) {

	switch {
	case errors.Is(err, domain.ErrAlreadyPaid):
		logger.Error("charge captured for an appointment that is already paid, refund required",
			"transaction_id", transactionID)

		failed, failErr := s.payments.Fail(ctx, payment.ID, "duplicate charge "+transactionID+" requires refund")
		if failErr != nil {
			return nil, errors.Join(err, failErr)
		}

		s.publish(ctx, domain.EventPaymentFailed, failed)

		return nil, domain.ErrAlreadyPaid

	case errors.Is(err, domain.ErrEditConflict):
		current, getErr := s.payments.GetById(ctx, payment.ID)
		if getErr != nil {
			return nil, getErr
		}

		if result, settled, outcomeErr := executeOutcome(current); settled {
			return result, outcomeErr
		}

		return nil, err

	default:
		return nil, err
	}
}

// Cancel moves a PENDING payment to FAILED. It never touches the appointment.
func (s *PaymentService) Cancel(ctx context.Context, paymentID int) (*domain.Payment, error) {
	payment, err := s.payments.GetById(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if err := payment.CanTransitionTo(domain.PaymentStatusFailed); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	failed, err := s.payments.Fail(ctx, paymentID, cancelledByPayer)
	if err != nil {
		if errors.Is(err, domain.ErrEditConflict) {
			return nil, fmt.Errorf("%w: payment %d is no longer pending", domain.ErrInvalidState, paymentID)
		}

		return nil, err
	}

	s.logger.Info("payment cancelled by payer", "payment_id", paymentID)
	s.publish(ctx, domain.EventPaymentFailed, failed)

	return failed, nil
}

func (s *PaymentService) Get(ctx context.Context, paymentID int) (*domain.Payment, error) {
	return s.payments.GetById(ctx, paymentID)
}

func (s *PaymentService) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	return s.payments.GetByProviderPaymentId(ctx, reference)
}

func (s *PaymentService) ListByUser(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.Payment, *domain.Metadata, error) {

	return s.payments.GetByUserId(ctx, userID, pagination)
}

// ListByAppointment returns the payment history of an appointment owned by userID.
func (s *PaymentService) ListByAppointment(ctx context.Context, appointmentID, userID int) ([]domain.Payment, error) {
	appointment, err := s.appointments.GetById(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appointment.PatientID != userID {
		return nil, domain.ErrRecordNotFound
	}

	return s.payments.GetByAppointmentId(ctx, appointmentID)
}

func (s *PaymentService) resolve(ctx context.Context, input ExecuteInput) (*domain.Payment, error) {
	switch {
	case input.PaymentID > 0:
		payment, err := s.payments.GetById(ctx, input.PaymentID)
		if err != nil {
			return nil, err
		}

		if input.Token != "" && (payment.ProviderPaymentID == nil || *payment.ProviderPaymentID != input.Token) {
			return nil, domain.ErrRecordNotFound
		}

		return payment, nil

	case input.Token != "":
		return s.payments.GetByProviderPaymentId(ctx, input.Token)

	default:
		return nil, domain.ErrRecordNotFound
	}
}

func (s *PaymentService) lock(ctx context.Context, paymentID int) (func(), error) {
	key := lockKeyPrefix + strconv.Itoa(paymentID)

	token, acquired, err := s.locker.TryLock(ctx, key, s.cfg.GatewayTimeout+lockTTLMargin)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for payment %d: %w", paymentID, err)
	}

	if !acquired {
		return nil, domain.ErrPaymentInProgress
	}

	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger.Error("failed to release payment lock", "payment_id", paymentID, "error", err)
		}
	}, nil
}

// awaitSettlement polls a payment that another caller is executing until it
// leaves PENDING or the wait budget runs out.
func (s *PaymentService) awaitSettlement(ctx context.Context, paymentID int) (*ExecuteResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.LockWait)
	defer cancel()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			return nil, domain.ErrPaymentInProgress
		case <-ticker.C:
		}

		payment, err := s.payments.GetById(waitCtx, paymentID)
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, domain.ErrPaymentInProgress
			}

			return nil, err
		}

		if result, settled, err := executeOutcome(payment); settled {
			return result, err
		}
	}
}

func (s *PaymentService) publish(ctx context.Context, eventType domain.EventType, payment *domain.Payment) {
	event := domain.NewEvent(eventType, domain.NewPaymentEventData(payment))

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish payment event",
			"event", eventType,
			"payment_id", payment.ID,
			"error", err)
	}
}

func (s *PaymentService) recordExecution(ctx context.Context, outcome string) {
	s.metrics.paymentsExecuted.Add(ctx, 1, metric.WithAttributes(attribute.String(OutcomeAttribute, outcome)))
}

// executeOutcome reports whether the payment is already settled and, if so,
// what Execute should return for it.
func executeOutcome(payment *domain.Payment) (*ExecuteResult, bool, error) {
	switch payment.Status {
	case domain.PaymentStatusCompleted:
		return &ExecuteResult{Payment: payment, AlreadyCompleted: true}, true, nil
	case domain.PaymentStatusFailed:
		return nil, true, fmt.Errorf("%w: payment %d has already failed", domain.ErrInvalidState, payment.ID)
	default:
		return nil, false, nil
	}
}

func asGatewayError(op string, err error) *domain.GatewayError {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}

	return &domain.GatewayError{Op: op, Kind: domain.GatewayUnavailable, Err: err}
}
