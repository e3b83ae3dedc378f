package app

import (
	"net/http"

	"github.com/metinatakli/hospital-payments/api"
	"github.com/metinatakli/hospital-payments/internal/billing"
	"github.com/metinatakli/hospital-payments/internal/domain"
	"github.com/metinatakli/hospital-payments/internal/payment"
)

func (app *Application) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var input api.CreatePaymentRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	userId := app.contextGetUserId(r)

	checkout, err := app.payments.Create(r.Context(), billing.CreatePaymentInput{
		AppointmentID: input.AppointmentId,
		UserID:        userId,
		Amount:        input.Amount,
	})
	if err != nil {
		app.billingErrorResponse(w, r, err)
		return
	}

	resp := api.CreatePaymentResponse{
		PaymentId:   checkout.Payment.ID,
		ApprovalUrl: checkout.ApprovalURL,
		Status:      string(checkout.Payment.Status),
	}
	if checkout.Payment.ProviderPaymentID != nil {
		resp.ApprovalReference = *checkout.Payment.ProviderPaymentID
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ExecutePayment(w http.ResponseWriter, r *http.Request) {
	var input api.ExecutePaymentRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	execInput := billing.ExecuteInput{PayerConfirmation: input.PayerConfirmation}
	if input.PaymentId != nil {
		execInput.PaymentID = *input.PaymentId
	}
	if input.Token != nil {
		execInput.Token = *input.Token
	}

	// Ownership is checked before anything reaches the gateway.
	_, ok := app.ownedPayment(w, r, execInput.PaymentID, execInput.Token)
	if !ok {
		return
	}

	result, err := app.payments.Execute(r.Context(), execInput)
	if err != nil {
		app.billingErrorResponse(w, r, err)
		return
	}

	resp := api.ExecutePaymentResponse{
		PaymentId:        result.Payment.ID,
		AppointmentId:    result.Payment.AppointmentID,
		Status:           string(result.Payment.Status),
		TransactionId:    result.Payment.TransactionID,
		AlreadyCompleted: result.AlreadyCompleted,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelPayment(w http.ResponseWriter, r *http.Request) {
	var input api.CancelPaymentRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	_, ok := app.ownedPayment(w, r, input.PaymentId, "")
	if !ok {
		return
	}

	cancelled, err := app.payments.Cancel(r.Context(), input.PaymentId)
	if err != nil {
		app.billingErrorResponse(w, r, err)
		return
	}

	resp := api.CancelPaymentResponse{
		PaymentId: cancelled.ID,
		Status:    string(cancelled.Status),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentId, err := app.readIntParam(r, "paymentId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	p, ok := app.ownedPayment(w, r, paymentId, "")
	if !ok {
		return
	}

	err = app.writeJSON(w, http.StatusOK, toApiPayment(p), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListPayments(w http.ResponseWriter, r *http.Request) {
	params, err := app.readPaginationParams(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(params)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	userId := app.contextGetUserId(r)

	payments, metadata, err := app.payments.ListByUser(r.Context(), userId, toPagination(params))
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.PaymentsResponse{
		Payments: toApiPayments(payments),
		Metadata: toApiMetadata(metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListAppointmentPayments(w http.ResponseWriter, r *http.Request) {
	appointmentId, err := app.readIntParam(r, "appointmentId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userId := app.contextGetUserId(r)

	payments, err := app.payments.ListByAppointment(r.Context(), appointmentId, userId)
	if err != nil {
		app.billingErrorResponse(w, r, err)
		return
	}

	resp := api.AppointmentPaymentsResponse{
		AppointmentId: appointmentId,
		Payments:      toApiPayments(payments),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// GetSimulatedCheckout stands in for the provider's approval page when the
// simulated gateway handed out the approval URL.
func (app *Application) GetSimulatedCheckout(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if !payment.IsSimulatedReference(token) {
		app.notFoundResponse(w, r)
		return
	}

	p, err := app.payments.GetByReference(r.Context(), token)
	if err != nil {
		app.billingErrorResponse(w, r, err)
		return
	}

	resp := api.SimulatedCheckoutResponse{
		Token:        token,
		PaymentId:    p.ID,
		Amount:       p.Amount.StringFixed(2),
		Currency:     p.Currency,
		Status:       string(p.Status),
		ExecuteUrl:   app.config.PublicBaseURL + "/payments/execute",
		Instructions: "POST the token to executeUrl from an authenticated session to complete this simulated payment",
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// ownedPayment loads a payment by id or approval reference and writes a 404
// unless it belongs to the authenticated user.
func (app *Application) ownedPayment(w http.ResponseWriter, r *http.Request, paymentId int, token string) (*domain.Payment, bool) {
	var (
		p   *domain.Payment
		err error
	)

	if paymentId != 0 {
		p, err = app.payments.Get(r.Context(), paymentId)
	} else {
		p, err = app.payments.GetByReference(r.Context(), token)
	}
	if err != nil {
		app.billingErrorResponse(w, r, err)
		return nil, false
	}

	if p.UserID != app.contextGetUserId(r) {
		app.contextGetLogger(r).Warn("payment access denied", "payment_id", p.ID)
		app.notFoundResponse(w, r)
		return nil, false
	}

	return p, true
}

func toApiPayment(p *domain.Payment) api.Payment {
	return api.Payment{
		Id:                p.ID,
		AppointmentId:     p.AppointmentID,
		Amount:            p.Amount.StringFixed(2),
		Currency:          p.Currency,
		Status:            string(p.Status),
		PaymentMethod:     p.PaymentMethod,
		ApprovalReference: p.ProviderPaymentID,
		TransactionId:     p.TransactionID,
		ErrorMessage:      p.ErrorMsg,
		PaymentDate:       p.PaymentDate,
		CreatedAt:         p.CreatedAt,
	}
}

func toApiPayments(payments []domain.Payment) []api.Payment {
	result := make([]api.Payment, len(payments))

	for i := range payments {
		result[i] = toApiPayment(&payments[i])
	}

	return result
}
