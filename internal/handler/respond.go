package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Stable machine-readable error kinds surfaced to callers. Storage-layer
// error text never leaves the process.
const (
	codeValidationFailed   = "validation_failed"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeNotFound           = "not_found"
	codeConflict           = "conflict"
	codeServiceUnavailable = "service_unavailable"
	codeInternal           = "internal"
)

func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{
		"code":    code,
		"message": message,
	})
}

// validationJSON reports field-level validation problems. Validation always
// runs before any write is attempted.
func validationJSON(c echo.Context, details map[string]string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"code":    codeValidationFailed,
		"message": "validation failed",
		"details": details,
	})
}
