package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"quantshared/internal/domain"
	"quantshared/internal/schema"
	"quantshared/internal/validation"
)

// Error codes carried in APIError.Code
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	CodeInternal         = "INTERNAL_ERROR"
)

// requestID reads the id the RequestID middleware stamped on the response
func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

// SuccessResponse sends a success response
func SuccessResponse(c echo.Context, data any) error {
	return respond(c, http.StatusOK, data)
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c echo.Context, data any) error {
	return respond(c, http.StatusCreated, data)
}

func respond(c echo.Context, status int, data any) error {
	resp, err := domain.NewAPIResponse(data, requestID(c))
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to encode response", err)
	}
	return c.JSON(status, resp)
}

// ErrorResponse sends an error response
func ErrorResponse(c echo.Context, statusCode int, code, message string, details any) error {
	return c.JSON(statusCode, domain.NewAPIErrorResponse(code, message, details, requestID(c)))
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, CodeBadRequest, message, nil)
}

// ValidationErrorResponse sends a 422 with every rejected field
func ValidationErrorResponse(c echo.Context, errs validation.Errors) error {
	return ErrorResponse(c, http.StatusUnprocessableEntity, CodeValidation, "Validation failed", errs)
}

// UnauthorizedResponse sends a 401 Unauthorized response
func UnauthorizedResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

// ForbiddenResponse sends a 403 Forbidden response
func ForbiddenResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusForbidden, CodeForbidden, message, nil)
}

// NotFoundResponse sends a 404 Not Found response
func NotFoundResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusNotFound, CodeNotFound, message, nil)
}

// ConflictResponse sends a 409 Conflict response
func ConflictResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusConflict, CodeConflict, message, nil)
}

// InternalServerErrorResponse logs err and sends a 500. The cause is not exposed.
func InternalServerErrorResponse(c echo.Context, message string, err error) error {
	log.Error().
		Err(err).
		Str("request_id", requestID(c)).
		Str("path", c.Path()).
		Msg(message)
	return ErrorResponse(c, http.StatusInternalServerError, CodeInternal, message, nil)
}

// HandleError maps a domain or validation error onto its response
func HandleError(c echo.Context, err error, message string) error {
	if errs, ok := validation.AsErrors(err); ok {
		return ValidationErrorResponse(c, errs)
	}
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, schema.ErrUnknownSchema):
		return NotFoundResponse(c, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		return ConflictResponse(c, message)
	}
	return InternalServerErrorResponse(c, message, err)
}

// ErrorHandler renders errors returned by middleware and unmatched routes in the envelope
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		if werr := HandleError(c, err, "Internal server error"); werr != nil {
			log.Error().Err(werr).Msg("Failed to write error response")
		}
		return
	}

	message := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok {
		message = m
	}

	code := CodeInternal
	switch he.Code {
	case http.StatusBadRequest:
		code = CodeBadRequest
	case http.StatusUnauthorized:
		code = CodeUnauthorized
	case http.StatusForbidden:
		code = CodeForbidden
	case http.StatusNotFound:
		code = CodeNotFound
	case http.StatusUnsupportedMediaType:
		code = CodeUnsupportedMedia
	default:
		if he.Code < http.StatusInternalServerError {
			code = CodeBadRequest
		}
	}

	if werr := ErrorResponse(c, he.Code, code, message, nil); werr != nil {
		log.Error().Err(werr).Msg("Failed to write error response")
	}
}
