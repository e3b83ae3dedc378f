package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/metinatakli/hospital-payments/internal/domain"
)

const SimulatedReferencePrefix = "SIM-"

func SimulatedReference(paymentID int) string {
	return SimulatedReferencePrefix + strconv.Itoa(paymentID)
}

func IsSimulatedReference(reference string) bool {
	return strings.HasPrefix(reference, SimulatedReferencePrefix)
}

// SimulatedGateway approves every charge without contacting a provider. It is
// used for local development and when the real provider cannot be reached.
type SimulatedGateway struct {
	publicBaseURL string
	now           func() time.Time

	mu       sync.Mutex
	counter  uint64
	captured map[string]string
	failNext error
}

func NewSimulatedGateway(publicBaseURL string) *SimulatedGateway {
	return &SimulatedGateway{
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
		captured:      make(map[string]string),
	}
}

func (g *SimulatedGateway) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.GatewayError{Op: "create", Kind: domain.GatewayUnavailable, Err: err}
	}

	reference := SimulatedReference(req.PaymentID)
	query := url.Values{"token": {reference}}

	return &domain.Charge{
		ApprovalReference: reference,
		ApprovalURL:       g.publicBaseURL + "/payments/checkout/simulated?" + query.Encode(),
		Simulated:         true,
	}, nil
}

// CaptureCharge returns the same transaction id for repeated captures of one
// reference.
func (g *SimulatedGateway) CaptureCharge(ctx context.Context, req domain.CaptureRequest) (*domain.Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.GatewayError{Op: "capture", Kind: domain.GatewayUnavailable, Err: err}
	}

	if !IsSimulatedReference(req.Reference) {
		return nil, &domain.GatewayError{
			Op:   "capture",
			Kind: domain.GatewayDeclined,
			Err:  fmt.Errorf("unknown simulated reference %q", req.Reference),
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failNext != nil {
		err := g.failNext
		g.failNext = nil
		return nil, err
	}

	if txn, ok := g.captured[req.Reference]; ok {
		return &domain.Capture{TransactionID: txn}, nil
	}

	g.counter++
	txn := fmt.Sprintf("SIMTXN-%s-%d-%d",
		strings.TrimPrefix(req.Reference, SimulatedReferencePrefix), g.now().UnixNano(), g.counter)
	g.captured[req.Reference] = txn

	return &domain.Capture{TransactionID: txn}, nil
}

// FailNextCapture makes the next CaptureCharge call return err. Plain errors
// are reported as declines.
func (g *SimulatedGateway) FailNextCapture(err error) {
	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) {
		err = &domain.GatewayError{Op: "capture", Kind: domain.GatewayDeclined, Err: err}
	}

	g.mu.Lock()
	g.failNext = err
	g.mu.Unlock()
}
