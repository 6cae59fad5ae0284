package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Round snaps value to the nearest multiple of stepOrTick and renders it
// as a decimal string with exactly the precision the step implies.
// Halfway values round away from zero (shopspring's Round); the tests pin
// this so a library change cannot silently shift order sizes.
//
// The exchange API takes decimal strings, not floats; returning a string
// here keeps the submitted value exact.
func Round(value decimal.Decimal, stepOrTick string) (string, error) {
	if value.Sign() < 0 {
		return "", fmt.Errorf("%w: %s must not be negative", ErrInvalidValue, value.String())
	}
	step, err := decimal.NewFromString(stepOrTick)
	if err != nil {
		return "", fmt.Errorf("invalid step size %q: %w", stepOrTick, err)
	}
	if step.Sign() <= 0 {
		return "", fmt.Errorf("invalid step size %q: must be positive", stepOrTick)
	}
	precision := StepPrecision(stepOrTick)
	rounded := value.Div(step).Round(0).Mul(step)
	return rounded.StringFixed(precision), nil
}

// StepPrecision returns the number of fractional digits a step size
// implies: trailing zeros do not count ("0.00100" -> 3, "1" -> 0).
func StepPrecision(stepOrTick string) int32 {
	dot := strings.IndexByte(stepOrTick, '.')
	if dot < 0 {
		return 0
	}
	frac := strings.TrimRight(stepOrTick[dot+1:], "0")
	return int32(len(frac))
}
