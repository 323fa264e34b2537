package domain

import (
	"fmt"
	"time"

	"quantshared/internal/validation"
)

// APIError is the structured error carried by a failed APIResponse
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details Opaque `json:"details,omitempty"`
}

// APIResponse is the envelope every API reply is wrapped in
type APIResponse struct {
	Success   bool      `json:"success"`
	Data      Opaque    `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp" default:"now"`
	RequestID string    `json:"request_id"`
}

// NewAPIResponse wraps data in a successful envelope stamped with the current time
func NewAPIResponse(data any, requestID string) (APIResponse, error) {
	payload, err := NewOpaque(data)
	if err != nil {
		return APIResponse{}, err
	}
	return APIResponse{
		Success:   true,
		Data:      payload,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}, nil
}

// NewAPIErrorResponse builds a failed envelope. details may be nil.
func NewAPIErrorResponse(code, message string, details any, requestID string) APIResponse {
	apiErr := &APIError{Code: code, Message: message}
	if details != nil {
		if payload, err := NewOpaque(details); err == nil {
			apiErr.Details = payload
		}
	}
	return APIResponse{
		Success:   false,
		Error:     apiErr,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// Validate checks the envelope
func (r APIResponse) Validate() error {
	return validation.Struct(r)
}

// Pagination is the conventional shape of PaginatedResponse.Pagination
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the page count for total items split by limit
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// PaginatedResponse is one page of items plus free-form pagination metadata
type PaginatedResponse struct {
	Data       []Opaque `json:"data" validate:"required"`
	Pagination Opaque   `json:"pagination" validate:"required"`
}

// NewPaginatedResponse encodes items and pagination into a page
func NewPaginatedResponse[T any](items []T, p Pagination) (PaginatedResponse, error) {
	data := make([]Opaque, 0, len(items))
	for i, item := range items {
		payload, err := NewOpaque(item)
		if err != nil {
			return PaginatedResponse{}, fmt.Errorf("item %d: %w", i, err)
		}
		data = append(data, payload)
	}

	meta, err := NewOpaque(p)
	if err != nil {
		return PaginatedResponse{}, err
	}

	return PaginatedResponse{Data: data, Pagination: meta}, nil
}

// PageInfo decodes the pagination metadata in its conventional shape
func (r PaginatedResponse) PageInfo() (Pagination, error) {
	var p Pagination
	err := r.Pagination.Decode(&p)
	return p, err
}
