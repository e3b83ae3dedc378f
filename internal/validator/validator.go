package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	receiptNumberRgx = regexp.MustCompile(`^RCP-\d{8}-\d{6,}$`)
	currencyRgx      = regexp.MustCompile(`^[A-Z]{3}$`)
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	validator.RegisterTagNameFunc(jsonFieldName)

	validator.RegisterValidation("receipt_number", validateReceiptNumber)
	validator.RegisterValidation("currency", validateCurrency)

	return validator
}

// decimalValue lets numeric tags such as gt and lte operate on decimal amounts.
func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}

	return nil
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}

	return name
}

func validateReceiptNumber(fl validator.FieldLevel) bool {
	return receiptNumberRgx.MatchString(fl.Field().String())
}

func validateCurrency(fl validator.FieldLevel) bool {
	return currencyRgx.MatchString(fl.Field().String())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is not provided", jsonParamName(err))
	case "email":
		return "must be a valid email address"
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "min":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", err.Param())
		}
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters long", err.Param())
		}
		return fmt.Sprintf("must be at most %s", err.Param())
	case "receipt_number":
		return "must look like RCP-YYYYMMDD-NNNNNN"
	case "currency":
		return "must be a three letter ISO 4217 code"
	default:
		return "is invalid"
	}
}

// required_without reports the Go field name; requests use camelCase keys.
func jsonParamName(err validator.FieldError) string {
	param := err.Param()
	if param == "" {
		return param
	}

	return strings.ToLower(param[:1]) + param[1:]
}
