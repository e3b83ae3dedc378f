package app

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/hospital-payments/api"
	"github.com/metinatakli/hospital-payments/internal/domain"
	appvalidator "github.com/metinatakli/hospital-payments/internal/validator"
)

// Machine readable error codes carried in every error body.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodeBadRequest        = "BAD_REQUEST"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidState      = "INVALID_STATE"
	CodeAlreadyPaid       = "ALREADY_PAID"
	CodeGatewayError      = "GATEWAY_ERROR"
	CodePaymentDeclined   = "PAYMENT_DECLINED"
	CodePaymentPending    = "PAYMENT_PENDING"
	CodeNotCompleted      = "NOT_COMPLETED"
	CodeInvalidFormat     = "INVALID_FORMAT"
	CodeReceiptMismatch   = "RECEIPT_MISMATCH"
	CodePaymentInProgress = "PAYMENT_IN_PROGRESS"
	CodeEditConflict      = "EDIT_CONFLICT"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeInternalError     = "INTERNAL_ERROR"
)

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := api.ErrorResponse{
		Message:   message,
		Code:      code,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	message := "The server encountered a problem and could not process your request"
	app.errorResponse(w, r, http.StatusInternalServerError, CodeInternalError, message)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "The requested resource not found"
	app.errorResponse(w, r, http.StatusNotFound, CodeNotFound, message)
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := "The " + r.Method + " method is not supported for this resource"
	app.errorResponse(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, message)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
}

func (app *Application) unauthorizedAccessResponse(w http.ResponseWriter, r *http.Request) {
	message := "You must be authenticated to access this resource"
	app.errorResponse(w, r, http.StatusUnauthorized, CodeUnauthorized, message)
}

func (app *Application) invalidCredentialsResponse(w http.ResponseWriter, r *http.Request) {
	message := "invalid authentication credentials"
	app.errorResponse(w, r, http.StatusUnauthorized, CodeUnauthorized, message)
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		app.badRequestResponse(w, r, err)
		return
	}

	issues := make([]api.ValidationError, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		issues = append(issues, api.ValidationError{
			Field: fieldErr.Field(),
			Issue: appvalidator.ValidationMessage(fieldErr),
		})
	}

	sort.Slice(issues, func(i, j int) bool {
		return issues[i].Field < issues[j].Field
	})

	resp := api.ValidationErrorResponse{
		Message:          "One or more fields have invalid values",
		Code:             CodeValidationFailed,
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
		ValidationErrors: issues,
	}

	err = app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// billingErrorResponse maps errors returned by the billing services onto
// HTTP statuses and error codes. Unknown errors become a 500.
func (app *Application) billingErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var gwErr *domain.GatewayError

	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrPaymentDeclined):
		app.errorResponse(w, r, http.StatusPaymentRequired, CodePaymentDeclined, domain.ErrPaymentDeclined.Error())
	case errors.As(err, &gwErr):
		switch gwErr.Kind {
		case domain.GatewayDeclined:
			app.errorResponse(w, r, http.StatusPaymentRequired, CodePaymentDeclined, domain.ErrPaymentDeclined.Error())
			return
		case domain.GatewayPending:
			app.errorResponse(w, r, http.StatusConflict, CodePaymentPending, "the payer has not completed this payment yet")
			return
		}
		app.logError(r, err)
		app.errorResponse(w, r, http.StatusBadGateway, CodeGatewayError, "the payment provider is currently unavailable, please retry later")
	case errors.Is(err, domain.ErrAlreadyPaid):
		app.errorResponse(w, r, http.StatusConflict, CodeAlreadyPaid, domain.ErrAlreadyPaid.Error())
	case errors.Is(err, domain.ErrInvalidState):
		app.errorResponse(w, r, http.StatusConflict, CodeInvalidState, err.Error())
	case errors.Is(err, domain.ErrNotCompleted):
		app.errorResponse(w, r, http.StatusConflict, CodeNotCompleted, domain.ErrNotCompleted.Error())
	case errors.Is(err, domain.ErrPaymentInProgress):
		app.errorResponse(w, r, http.StatusConflict, CodePaymentInProgress, domain.ErrPaymentInProgress.Error())
	case errors.Is(err, domain.ErrEditConflict):
		app.errorResponse(w, r, http.StatusConflict, CodeEditConflict, "unable to update the record due to an edit conflict, please try again")
	case errors.Is(err, domain.ErrInvalidAmount):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, CodeInvalidAmount, domain.ErrInvalidAmount.Error())
	case errors.Is(err, domain.ErrInvalidFormat):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, CodeInvalidFormat, domain.ErrInvalidFormat.Error())
	case errors.Is(err, domain.ErrReceiptMismatch):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, CodeReceiptMismatch, domain.ErrReceiptMismatch.Error())
	default:
		app.serverErrorResponse(w, r, err)
	}
}
