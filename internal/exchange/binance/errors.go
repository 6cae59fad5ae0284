package binance

import (
	"errors"
	"strings"

	"trade-bot/internal/core"
)

const (
	apiCodeNewOrderRejected    = -2010
	apiCodeCancelRejected      = -2011
	apiCodeOrderNotFound       = -2013
	apiCodeBalanceInsufficient = -2018
	apiCodeMarginInsufficient  = -2019
	apiCodeInvalidSymbol       = -1121
	apiCodeNotionalTooSmall    = -4164
)

var apiErrorMessageKinds = map[string]error{
	"duplicate order sent.":          core.ErrDuplicateOrder,
	"margin is insufficient.":        core.ErrInsufficientBalance,
	"balance is insufficient.":       core.ErrInsufficientBalance,
	"unknown order sent.":            core.ErrOrderNotFound,
	"order does not exist.":          core.ErrOrderNotFound,
	"order was canceled or expired.": core.ErrOrderNotFound,
}

func wrapAPIError(code int, msg string) error {
	return classifyAPIError(APIError{Code: code, Msg: msg})
}

func classifyAPIError(apiErr APIError) error {
	kinds := classifyAPIErrorKinds(apiErr)
	if len(kinds) == 0 {
		return apiErr
	}
	errChain := make([]error, 0, 1+len(kinds))
	errChain = append(errChain, apiErr)
	errChain = append(errChain, kinds...)
	return errors.Join(errChain...)
}

func classifyAPIErrorKinds(apiErr APIError) []error {
	kinds := make([]error, 0, 2)
	normalizedMsg := strings.ToLower(strings.TrimSpace(apiErr.Msg))

	switch apiErr.Code {
	case apiCodeOrderNotFound, apiCodeCancelRejected:
		kinds = appendErrorKind(kinds, core.ErrOrderNotFound)
	case apiCodeBalanceInsufficient, apiCodeMarginInsufficient:
		kinds = appendErrorKind(kinds, core.ErrInsufficientBalance)
		kinds = appendErrorKind(kinds, core.ErrOrderRejected)
	case apiCodeInvalidSymbol:
		kinds = appendErrorKind(kinds, core.ErrSymbolNotFound)
	case apiCodeNotionalTooSmall:
		kinds = appendErrorKind(kinds, core.ErrOrderRejected)
	case apiCodeNewOrderRejected:
		if kind, ok := apiErrorMessageKinds[normalizedMsg]; ok {
			kinds = appendErrorKind(kinds, kind)
		} else {
			kinds = appendErrorKind(kinds, core.ErrOrderRejected)
		}
	}

	if kind, ok := apiErrorMessageKinds[normalizedMsg]; ok {
		kinds = appendErrorKind(kinds, kind)
	}

	return kinds
}

func appendErrorKind(kinds []error, kind error) []error {
	if kind == nil {
		return kinds
	}
	for _, existing := range kinds {
		if existing == kind {
			return kinds
		}
	}
	return append(kinds, kind)
}

func AsAPIError(err error) (APIError, bool) {
	if err == nil {
		return APIError{}, false
	}
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return APIError{}, false
	}
	return apiErr, true
}
