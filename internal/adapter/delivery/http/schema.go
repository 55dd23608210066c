package http

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const statusError = "error"

// urlRequest represents the structure for a request to shorten a URL.
// The target is not checked for URL syntax; any non-empty string is accepted.
type urlRequest struct {
	LongURL string `json:"long_url" validate:"required"`
	Note    string `json:"note"`
}

// urlResponse represents the structure for a response containing a shortened URL and its statistics.
type urlResponse struct {
	ShortURL   string     `json:"short_url"`
	LongURL    string     `json:"long_url"`
	Note       string     `json:"note"`
	VisitCount uint64     `json:"visit_count"`
	LastVisit  *time.Time `json:"last_visit"`
}

// toURLResponse converts an entity.URLEntry to a urlResponse.
func toURLResponse(url *entity.URLEntry) urlResponse {
	return urlResponse{
		ShortURL:   url.ShortCode,
		LongURL:    url.LongURL,
		Note:       url.Note,
		VisitCount: url.VisitCount,
		LastVisit:  url.LastVisit,
	}
}

// toURLListResponse converts entries to responses ordered by short code.
func toURLListResponse(urls []entity.URLEntry) []urlResponse {
	resp := make([]urlResponse, 0, len(urls))
	for i := range urls {
		resp = append(resp, toURLResponse(&urls[i]))
	}

	sort.Slice(resp, func(i, j int) bool {
		return resp[i].ShortURL < resp[j].ShortURL
	})

	return resp
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	unauthorizedResponse = errorResponse{
		Status:  statusError,
		Message: "invalid or missing admin token",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "url not found",
	}

	codeSpaceExhaustedResponse = errorResponse{
		Status:  statusError,
		Message: "no free short code available, try again later",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
