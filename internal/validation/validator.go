package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// supportedCurrencies lists the ISO 4217 codes the gateway account accepts.
var supportedCurrencies = map[string]bool{
	"INR": true,
	"USD": true,
	"EUR": true,
	"GBP": true,
	"SGD": true,
	"AED": true,
}

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// register struct-level validation for CreatePaymentRequest to ensure
	// the currency code is one the gateway account supports.
	v.RegisterStructValidation(createPaymentStructValidation, CreatePaymentRequest{})

	return v
}

// createPaymentStructValidation rejects currency codes outside the supported set.
func createPaymentStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreatePaymentRequest)

	if req.Currency != "" && !supportedCurrencies[req.Currency] {
		sl.ReportError(req.Currency, "currency", "Currency", "currency_supported", req.Currency)
	}
}
