package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Page size bounds for the alert and report listings.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// PaginationRequest carries the page and limit query parameters of a listing
// request, normalized to sane values.
type PaginationRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// Offset converts the one-based page number into a row offset.
func (p PaginationRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination is the metadata block attached to paginated listings.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalItems  int `json:"total_items"`
	PerPage     int `json:"per_page"`
}

// PaginatedResponse wraps one page of results with its pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// GetPaginationFromContext reads page and limit from the query string.
// Missing or malformed values fall back to the defaults; limit is capped at
// MaxLimit.
func GetPaginationFromContext(ctx *gin.Context) PaginationRequest {
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return PaginationRequest{Page: page, Limit: limit}
}

// NewPaginatedResponse assembles the response envelope for one page of data.
func NewPaginatedResponse(data interface{}, pagination PaginationRequest, totalItems int) PaginatedResponse {
	totalPages := 0
	if pagination.Limit > 0 {
		totalPages = (totalItems + pagination.Limit - 1) / pagination.Limit
	}

	return PaginatedResponse{
		Data: data,
		Pagination: Pagination{
			CurrentPage: pagination.Page,
			TotalPages:  totalPages,
			TotalItems:  totalItems,
			PerPage:     pagination.Limit,
		},
	}
}
