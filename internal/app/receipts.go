package app

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/metinatakli/hospital-payments/api"
	"github.com/metinatakli/hospital-payments/internal/domain"
)

const receiptIssuedTemplate = "receipt_issued.tmpl"

// GenerateReceipt issues the receipt of a completed payment. Repeated calls
// return the stored receipt with 200 instead of 201.
func (app *Application) GenerateReceipt(w http.ResponseWriter, r *http.Request) {
	paymentId, err := app.readIntParam(r, "paymentId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, ok := app.ownedPayment(w, r, paymentId, "")
	if !ok {
		return
	}

	result, err := app.receipts.Issue(r.Context(), paymentId)
	if err != nil {
		app.billingErrorResponse(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
		app.sendReceiptEmail(r, result.Receipt)
	}

	err = app.writeJSON(w, status, toApiReceipt(result.Receipt), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, ok := app.ownedReceiptByNumber(w, r)
	if !ok {
		return
	}

	err := app.writeJSON(w, http.StatusOK, toApiReceipt(receipt), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetReceiptByPayment(w http.ResponseWriter, r *http.Request) {
	paymentId, err := app.readIntParam(r, "paymentId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	receipt, err := app.receipts.GetByPayment(r.Context(), paymentId)
	if err != nil {
		app.billingErrorResponse(w, r, err)
		return
	}

	if receipt.UserID != app.contextGetUserId(r) {
		app.notFoundResponse(w, r)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toApiReceipt(receipt), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListReceipts(w http.ResponseWriter, r *http.Request) {
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

	receipts, metadata, err := app.receipts.ListByUser(r.Context(), userId, toPagination(params))
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	apiReceipts := make([]api.Receipt, len(receipts))
	for i := range receipts {
		apiReceipts[i] = toApiReceipt(&receipts[i])
	}

	resp := api.ReceiptsResponse{
		Receipts: apiReceipts,
		Metadata: toApiMetadata(metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetReceiptPdf(w http.ResponseWriter, r *http.Request) {
	receipt, ok := app.ownedReceiptByNumber(w, r)
	if !ok {
		return
	}

	pdf, err := app.renderer.RenderReceipt(receipt)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", receipt.ReceiptNumber+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// VerifyReceipt is public: anyone holding a printed receipt can check it.
func (app *Application) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	var input api.VerifyReceiptRequest

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

	summary, err := app.receipts.Verify(r.Context(), input.QrPayload)
	if err != nil {
		app.billingErrorResponse(w, r, err)
		return
	}

	resp := api.ReceiptSummary{
		Valid:              true,
		ReceiptNumber:      summary.ReceiptNumber,
		Amount:             summary.Amount.StringFixed(2),
		Currency:           summary.Currency,
		PatientName:        summary.PatientName,
		DoctorName:         summary.DoctorName,
		ServiceDescription: summary.ServiceDescription,
		PaymentMethod:      summary.PaymentMethod,
		IssuedAt:           summary.IssuedAt,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ownedReceiptByNumber(w http.ResponseWriter, r *http.Request) (*domain.Receipt, bool) {
	receiptNumber := chi.URLParam(r, "receiptNumber")

	err := app.validator.Var(receiptNumber, "receipt_number")
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid receipt number %q", receiptNumber))
		return nil, false
	}

	receipt, err := app.receipts.GetByNumber(r.Context(), receiptNumber)
	if err != nil {
		app.billingErrorResponse(w, r, err)
		return nil, false
	}

	if receipt.UserID != app.contextGetUserId(r) {
		app.notFoundResponse(w, r)
		return nil, false
	}

	return receipt, true
}

func (app *Application) sendReceiptEmail(r *http.Request, receipt *domain.Receipt) {
	data := map[string]any{
		"PatientName":        receipt.PatientName,
		"ReceiptNumber":      receipt.ReceiptNumber,
		"ServiceDescription": receipt.ServiceDescription,
		"DoctorName":         receipt.DoctorName,
		"Amount":             receipt.Amount.StringFixed(2),
		"Currency":           receipt.Currency,
		"TransactionID":      receipt.TransactionID,
	}

	app.background(r, "receipt email", func(r *http.Request) {
		logger := app.contextGetLogger(r).With("receipt_number", receipt.ReceiptNumber)

		err := app.mailer.Send(receipt.PatientEmail, receiptIssuedTemplate, data)
		if err != nil {
			logger.Error("failed to send receipt email", "error", err)
			return
		}

		logger.Info("receipt email sent")
	})
}

func toApiReceipt(receipt *domain.Receipt) api.Receipt {
	return api.Receipt{
		Id:                 receipt.ID,
		ReceiptNumber:      receipt.ReceiptNumber,
		PaymentId:          receipt.PaymentID,
		AppointmentId:      receipt.AppointmentID,
		Amount:             receipt.Amount.StringFixed(2),
		Currency:           receipt.Currency,
		PatientName:        receipt.PatientName,
		PatientEmail:       receipt.PatientEmail,
		DoctorName:         receipt.DoctorName,
		ServiceDescription: receipt.ServiceDescription,
		PaymentMethod:      receipt.PaymentMethod,
		TransactionId:      receipt.TransactionID,
		QrPayload:          receipt.QRPayload,
		IssuedAt:           receipt.IssuedAt,
	}
}
