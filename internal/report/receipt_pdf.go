package report

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/metinatakli/hospital-payments/internal/domain"
)

// ReceiptRenderer lays a receipt out as a single page PDF with its QR code.
type ReceiptRenderer struct {
	issuer string
}

func NewReceiptRenderer(issuer string) *ReceiptRenderer {
	return &ReceiptRenderer{issuer: issuer}
}

func (r *ReceiptRenderer) RenderReceipt(receipt *domain.Receipt) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	m.AddRows(
		text.NewRow(12, r.issuer, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center}),
		text.NewRow(8, "Payment Receipt", props.Text{Size: 12, Align: align.Center}),
	)

	m.AddRows(
		field("Receipt number", receipt.ReceiptNumber),
		field("Issued at", receipt.IssuedAt.UTC().Format("2006-01-02 15:04 MST")),
		field("Patient", receipt.PatientName),
		field("Email", receipt.PatientEmail),
		field("Doctor", receipt.DoctorName),
		field("Service", receipt.ServiceDescription),
		field("Payment method", receipt.PaymentMethod),
		field("Transaction", receipt.TransactionID),
		field("Amount paid", fmt.Sprintf("%s %s", receipt.Amount.StringFixed(2), receipt.Currency)),
	)

	m.AddRow(60, code.NewQrCol(12, receipt.QRPayload, props.Rect{Center: true, Percent: 90}))
	m.AddRows(text.NewRow(8, "Scan to verify this receipt", props.Text{Size: 8, Align: align.Center}))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to render receipt %s: %w", receipt.ReceiptNumber, err)
	}

	return doc.GetBytes(), nil
}

func field(label, value string) core.Row {
	return row.New(8).Add(
		text.NewCol(4, label, props.Text{Style: fontstyle.Bold, Top: 1}),
		text.NewCol(8, value, props.Text{Top: 1}),
	)
}
