package http

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"quantshared/internal/domain"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	userRepo  domain.UserRepository
	eventRepo domain.EventRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userRepo domain.UserRepository, eventRepo domain.EventRepository) *AdminHandler {
	return &AdminHandler{
		userRepo:  userRepo,
		eventRepo: eventRepo,
	}
}

// ListUsers returns one page of users
// GET /api/admin/users?page=1&limit=50
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, limit := parsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	users, err := h.userRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to list users", err)
	}
	total, err := h.userRepo.Count(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to count users", err)
	}

	resp, err := domain.NewPaginatedResponse(users, domain.NewPagination(page, limit, total))
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to encode users", err)
	}
	return SuccessResponse(c, resp)
}

// RecentEvents returns the newest published events
// GET /api/admin/events?limit=100
func (h *AdminHandler) RecentEvents(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	events, err := h.eventRepo.Recent(ctx, limit)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to fetch events", err)
	}
	return SuccessResponse(c, events)
}
