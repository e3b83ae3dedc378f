package billing

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/metinatakli/hospital-payments/internal/domain"
	"github.com/shopspring/decimal"
)

const qrPayloadPrefix = "hmsreceipt:v1?"

var (
	receiptNumberPattern = regexp.MustCompile(`^RCP-\d{8}-\d{6,}$`)
	currencyPattern      = regexp.MustCompile(`^[A-Z]{3}$`)
)

// QRPayload is the data printed in a receipt's QR code.
type QRPayload struct {
	ReceiptNumber string
	Amount        decimal.Decimal
	Currency      string
	PayerName     string
}

func EncodeQRPayload(p QRPayload) string {
	values := url.Values{}
	values.Set("n", p.ReceiptNumber)
	values.Set("a", p.Amount.StringFixed(2))
	values.Set("c", p.Currency)
	values.Set("p", p.PayerName)

	return qrPayloadPrefix + values.Encode()
}

func ParseQRPayload(raw string) (*QRPayload, error) {
	query, ok := strings.CutPrefix(strings.TrimSpace(raw), qrPayloadPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payload prefix", domain.ErrInvalidFormat)
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}

	number := values.Get("n")
	if !receiptNumberPattern.MatchString(number) {
		return nil, fmt.Errorf("%w: invalid receipt number", domain.ErrInvalidFormat)
	}

	amount, err := decimal.NewFromString(values.Get("a"))
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: invalid amount", domain.ErrInvalidFormat)
	}

	currency := values.Get("c")
	if !currencyPattern.MatchString(currency) {
		return nil, fmt.Errorf("%w: invalid currency", domain.ErrInvalidFormat)
	}

	payer := values.Get("p")
	if strings.TrimSpace(payer) == "" {
		return nil, fmt.Errorf("%w: missing payer name", domain.ErrInvalidFormat)
	}

	return &QRPayload{
		ReceiptNumber: number,
		Amount:        amount,
		Currency:      currency,
		PayerName:     payer,
	}, nil
}

// FormatReceiptNumber renders RCP-YYYYMMDD-NNNNNN. The sequence comes from
// the database so numbers never collide across instances.
func FormatReceiptNumber(issuedAt time.Time, seq int64) string {
	return fmt.Sprintf("RCP-%s-%06d", issuedAt.UTC().Format("20060102"), seq)
}
