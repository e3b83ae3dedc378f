package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/metinatakli/hospital-payments/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

const checkoutSessionPlaceholder = "{CHECKOUT_SESSION_ID}"

type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway creates hosted Checkout Sessions and treats a paid session as
// a captured charge.
type StripeGateway struct {
	sessions checkoutSessions
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := client.New(secretKey, nil)

	return &StripeGateway{sessions: api.CheckoutSessions}
}

func (g *StripeGateway) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	amountCents := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(amountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(fmt.Sprintf("Appointment #%d", req.AppointmentID)),
						Description: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(withSessionPlaceholder(req.ReturnURL)),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata: map[string]string{
			"payment_id":     strconv.Itoa(req.PaymentID),
			"appointment_id": strconv.Itoa(req.AppointmentID),
		},
		ClientReferenceID: stripe.String(strconv.Itoa(req.PaymentID)),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	params.Context = ctx
	params.SetIdempotencyKey("checkout-payment-" + strconv.Itoa(req.PaymentID))

	sess, err := g.sessions.New(params)
	if err != nil {
		return nil, &domain.GatewayError{Op: "create", Kind: domain.GatewayUnavailable, Err: err}
	}

	return &domain.Charge{
		ApprovalReference: sess.ID,
		ApprovalURL:       sess.URL,
	}, nil
}

func (g *StripeGateway) CaptureCharge(ctx context.Context, req domain.CaptureRequest) (*domain.Capture, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	sess, err := g.sessions.Get(req.Reference, params)
	if err != nil {
		return nil, &domain.GatewayError{Op: "capture", Kind: classifyStripeError(err), Err: err}
	}

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		// only an expired session can no longer be paid
		if sess.Status == stripe.CheckoutSessionStatusExpired {
			return nil, &domain.GatewayError{
				Op:   "capture",
				Kind: domain.GatewayDeclined,
				Err:  errors.New("checkout session expired before it was paid"),
			}
		}

		return nil, &domain.GatewayError{
			Op:   "capture",
			Kind: domain.GatewayPending,
			Err:  fmt.Errorf("checkout session is %s with payment status %s", sess.Status, sess.PaymentStatus),
		}
	}

	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return nil, &domain.GatewayError{
			Op:   "capture",
			Kind: domain.GatewayUnavailable,
			Err:  errors.New("paid checkout session has no payment intent"),
		}
	}

	return &domain.Capture{TransactionID: sess.PaymentIntent.ID}, nil
}

// classifyStripeError separates definite refusals from failures that may
// succeed on retry.
func classifyStripeError(err error) domain.GatewayErrorKind {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return domain.GatewayUnavailable
	}

	if stripeErr.Type == stripe.ErrorTypeCard {
		return domain.GatewayDeclined
	}

	switch stripeErr.HTTPStatusCode {
	case http.StatusBadRequest, http.StatusPaymentRequired, http.StatusNotFound:
		return domain.GatewayDeclined
	default:
		return domain.GatewayUnavailable
	}
}

func withSessionPlaceholder(returnURL string) string {
	if strings.Contains(returnURL, checkoutSessionPlaceholder) {
		return returnURL
	}

	sep := "?"
	if strings.Contains(returnURL, "?") {
		sep = "&"
	}

	return returnURL + sep + "session_id=" + checkoutSessionPlaceholder
}
