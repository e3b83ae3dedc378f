// Package api holds the request and response bodies described by api.yaml.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	Code             string            `json:"code"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
}

type PaginationParams struct {
	Page     *int `json:"page,omitempty" validate:"omitempty,min=1"`
	PageSize *int `json:"pageSize,omitempty" validate:"omitempty,min=1,max=100"`
}

type LoginRequest struct {
	Email    openapi_types.Email `json:"email" validate:"required,email"`
	Password string              `json:"password" validate:"required,max=72"`
}

type CreatePaymentRequest struct {
	AppointmentId int             `json:"appointmentId" validate:"required,gt=0"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
}

type CreatePaymentResponse struct {
	PaymentId         int    `json:"paymentId"`
	ApprovalUrl       string `json:"approvalUrl"`
	ApprovalReference string `json:"approvalReference"`
	Status            string `json:"status"`
}

type ExecutePaymentRequest struct {
	PaymentId         *int    `json:"paymentId,omitempty" validate:"required_without=Token,omitempty,gt=0"`
	Token             *string `json:"token,omitempty" validate:"required_without=PaymentId,omitempty,min=1,max=255"`
	PayerConfirmation string  `json:"payerConfirmation" validate:"max=255"`
}

type ExecutePaymentResponse struct {
	PaymentId        int     `json:"paymentId"`
	AppointmentId    int     `json:"appointmentId"`
	Status           string  `json:"status"`
	TransactionId    *string `json:"transactionId"`
	AlreadyCompleted bool    `json:"alreadyCompleted"`
}

type CancelPaymentRequest struct {
	PaymentId int `json:"paymentId" validate:"required,gt=0"`
}

type CancelPaymentResponse struct {
	PaymentId int    `json:"paymentId"`
	Status    string `json:"status"`
}

type Payment struct {
	Id                int        `json:"id"`
	AppointmentId     int        `json:"appointmentId"`
	Amount            string     `json:"amount"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	PaymentMethod     string     `json:"paymentMethod"`
	ApprovalReference *string    `json:"approvalReference,omitempty"`
	TransactionId     *string    `json:"transactionId,omitempty"`
	ErrorMessage      *string    `json:"errorMessage,omitempty"`
	PaymentDate       *time.Time `json:"paymentDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type PaymentsResponse struct {
	Payments []Payment `json:"payments"`
	Metadata Metadata  `json:"metadata"`
}

type AppointmentPaymentsResponse struct {
	AppointmentId int       `json:"appointmentId"`
	Payments      []Payment `json:"payments"`
}

type SimulatedCheckoutResponse struct {
	Token        string `json:"token"`
	PaymentId    int    `json:"paymentId"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ExecuteUrl   string `json:"executeUrl"`
	Instructions string `json:"instructions"`
}

type Receipt struct {
	Id                 int       `json:"id"`
	ReceiptNumber      string    `json:"receiptNumber"`
	PaymentId          int       `json:"paymentId"`
	AppointmentId      int       `json:"appointmentId"`
	Amount             string    `json:"amount"`
	Currency           string    `json:"currency"`
	PatientName        string    `json:"patientName"`
	PatientEmail       string    `json:"patientEmail"`
	DoctorName         string    `json:"doctorName"`
	ServiceDescription string    `json:"serviceDescription"`
	PaymentMethod      string    `json:"paymentMethod"`
	TransactionId      string    `json:"transactionId"`
	QrPayload          string    `json:"qrPayload"`
	IssuedAt           time.Time `json:"issuedAt"`
}

type ReceiptsResponse struct {
	Receipts []Receipt `json:"receipts"`
	Metadata Metadata  `json:"metadata"`
}

type VerifyReceiptRequest struct {
	QrPayload string `json:"qrPayload" validate:"required,max=2048"`
}

type ReceiptSummary struct {
	Valid              bool      `json:"valid"`
	ReceiptNumber      string    `json:"receiptNumber"`
	Amount             string    `json:"amount"`
	Currency           string    `json:"currency"`
	PatientName        string    `json:"patientName"`
	DoctorName         string    `json:"doctorName"`
	ServiceDescription string    `json:"serviceDescription"`
	PaymentMethod      string    `json:"paymentMethod"`
	IssuedAt           time.Time `json:"issuedAt"`
}
