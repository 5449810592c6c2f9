package models

import (
	"errors"
	"net/http"

	"github.com/matsimonsen7/tid-er-penge/internal/backtest"
	"github.com/matsimonsen7/tid-er-penge/internal/data"
)

// Error codes returned in ErrorDetail.Code.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeUnknownSecurity  = "UNKNOWN_SECURITY"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeLoadFailed       = "LOAD_FAILED"
	CodeChartFailed      = "CHART_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
)

// NewError builds an ErrorResponse.
func NewError(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// FromError maps a calculation error onto a status code and response body.
func FromError(err error) (int, ErrorResponse) {
	var loadErr *data.LoadError
	switch {
	case errors.As(err, &loadErr):
		resp := NewError(CodeLoadFailed, err.Error())
		resp.Error.Details = map[string]interface{}{"symbol": loadErr.Symbol}
		if loadErr.StatusCode != 0 {
			resp.Error.Details["status_code"] = loadErr.StatusCode
		}
		return http.StatusBadGateway, resp
	case errors.Is(err, backtest.ErrInsufficientData), errors.Is(err, backtest.ErrNoData):
		return http.StatusUnprocessableEntity, NewError(CodeInsufficientData, err.Error())
	case errors.Is(err, backtest.ErrInvalidInput):
		return http.StatusBadRequest, NewError(CodeInvalidRequest, err.Error())
	default:
		return http.StatusInternalServerError, NewError(CodeInternal, err.Error())
	}
}
