package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"quantshared/internal/codec"
	"quantshared/internal/schema"
)

// maxSchemaBody bounds the payload accepted for validation
const maxSchemaBody = 4 << 20

// SchemaHandler exposes the schema registry over HTTP
type SchemaHandler struct {
	registry *schema.Registry
}

// NewSchemaHandler creates a new SchemaHandler
func NewSchemaHandler(registry *schema.Registry) *SchemaHandler {
	return &SchemaHandler{registry: registry}
}

// List returns the registered schema names
// GET /api/schemas
func (h *SchemaHandler) List(c echo.Context) error {
	return SuccessResponse(c, h.registry.Names())
}

// Validate decodes the body as the named schema and echoes the constructed record,
// defaults applied. The body may be JSON or MessagePack.
// POST /api/schemas/:name/validate
func (h *SchemaHandler) Validate(c echo.Context) error {
	name := c.Param("name")
	if !h.registry.Has(name) {
		return NotFoundResponse(c, "Unknown schema: "+name)
	}

	cd, ok := codec.ForContentType(c.Request().Header.Get(echo.HeaderContentType))
	if !ok {
		return ErrorResponse(c, http.StatusUnsupportedMediaType, CodeUnsupportedMedia,
			"Content type must be JSON or MessagePack", nil)
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSchemaBody))
	if err != nil {
		return BadRequestResponse(c, "Failed to read request body")
	}

	doc, err := cd.ToJSON(body)
	if err != nil {
		return BadRequestResponse(c, "Malformed "+cd.Name()+" body")
	}

	record, err := h.registry.Decode(name, doc)
	if err != nil {
		return HandleError(c, err, "Failed to validate record")
	}
	return SuccessResponse(c, record)
}
