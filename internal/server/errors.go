package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/balance-validator/internal/history"
	"github.com/jonathan/balance-validator/internal/workflow"
)

// ErrNoResult indicates there is no result to export.
var ErrNoResult = errors.New("no hay resultados para exportar")

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		inputErr *workflow.InputError
		valErr   *ErrValidation
	)
	switch {
	case errors.Is(err, workflow.ErrBusy), errors.Is(err, ErrNoResult):
		return http.StatusConflict
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &inputErr), errors.As(err, &valErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the text safe to send for err. Internal failures get
// a fixed message; the detail is only logged.
func publicMessage(err error) string {
	var inputErr *workflow.InputError
	switch {
	case errors.As(err, &inputErr):
		return inputErr.Message
	case errors.Is(err, workflow.ErrBusy):
		return "Ya hay un análisis en curso."
	case errors.Is(err, history.ErrNotFound):
		return "El registro no existe."
	case errors.Is(err, ErrNoResult):
		return ErrNoResult.Error()
	}
	var valErr *ErrValidation
	if errors.As(err, &valErr) {
		return valErr.Message
	}
	return "Ocurrió un error inesperado. Por favor, intente nuevamente."
}
