package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/i474232898/place-info/internal/fault"
	"github.com/i474232898/place-info/internal/place"
)

var (
	// ErrBaseMismatch means the payload is quoted in another base than configured.
	ErrBaseMismatch = errors.New("currencyBase not in result")
	// ErrRelativeMissing means the relative-to currency has no usable rate.
	ErrRelativeMissing = errors.New("currencyRelativeTo not in result")
)

// Options controls how raw rates are turned into display values.
type Options struct {
	Base       string
	RelativeTo string
	Reversed   bool
	Precision  int32
}

// Derive computes the display rate of every currency referenced by places.
// With RelativeTo set a rate is rates[code]/rates[RelativeTo]; without it the
// payload's rate against Base is used. Reversed yields the reciprocal.
// Currencies missing from the payload are left out.
func Derive(p Payload, places []place.Spec, opts Options) (map[string]string, error) {
	const op = "currency.Derive"

	if !strings.EqualFold(p.Base, opts.Base) {
		return nil, fault.New(fault.Validation, op,
			fmt.Errorf("%w: got %q, want %q", ErrBaseMismatch, p.Base, opts.Base))
	}

	divisor := decimal.NewFromInt(1)
	if rel := strings.ToUpper(opts.RelativeTo); rel != "" {
		r, ok := p.Rates[rel]
		if !ok || r == 0 {
			return nil, fault.New(fault.Validation, op, fmt.Errorf("%w: %s", ErrRelativeMissing, rel))
		}
		divisor = decimal.NewFromFloat(r)
	}

	values := make(map[string]string)
	for _, code := range place.Currencies(places) {
		r, ok := p.Rates[code]
		if !ok {
			continue
		}
		rate := decimal.NewFromFloat(r)

		var fx decimal.Decimal
		if opts.Reversed {
			if rate.IsZero() {
				continue
			}
			fx = divisor.Div(rate)
		} else {
			fx = rate.Div(divisor)
		}
		values[code] = fx.StringFixed(opts.Precision)
	}
	return values, nil
}
