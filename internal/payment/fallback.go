package payment

import (
	"context"
	"log/slog"

	"github.com/metinatakli/hospital-payments/internal/domain"
)

// FallbackGateway issues checkouts through the fallback gateway when the
// primary one is unavailable. Captures are routed by reference so a payment
// is always captured by the gateway that created it.
type FallbackGateway struct {
	primary  domain.PaymentGateway
	fallback *SimulatedGateway
	logger   *slog.Logger
}

func NewFallbackGateway(primary domain.PaymentGateway, fallback *SimulatedGateway, logger *slog.Logger) *FallbackGateway {
	return &FallbackGateway{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (g *FallbackGateway) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	charge, err := g.primary.CreateCharge(ctx, req)
	if err == nil {
		return charge, nil
	}

	if !domain.IsGatewayUnavailable(err) {
		return nil, err
	}

	g.logger.Warn("primary payment gateway unavailable, issuing simulated checkout",
		"payment_id", req.PaymentID,
		"error", err)

	return g.fallback.CreateCharge(context.WithoutCancel(ctx), req)
}

func (g *FallbackGateway) CaptureCharge(ctx context.Context, req domain.CaptureRequest) (*domain.Capture, error) {
	if IsSimulatedReference(req.Reference) {
		return g.fallback.CaptureCharge(ctx, req)
	}

	return g.primary.CaptureCharge(ctx, req)
}
