// Package response renders the JSON envelope every endpoint returns.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
)

type Envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Data       interface{}      `json:"data,omitempty"`
	Pagination *Pagination      `json:"pagination,omitempty"`
	Error      *errors.AppError `json:"error,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int64 `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// ErrorKey is where Error records the failure for the logging middleware.
const ErrorKey = "app_error"

func OK(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusOK, message, data)
}

func Created(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusCreated, message, data)
}

func JSON(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Paginated renders one page of results with navigation metadata.
func Paginated(c *gin.Context, message string, page *database.PaginatedResult) {
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: message,
		Data:    page.Data,
		Pagination: &Pagination{
			Page:        page.Page,
			Limit:       page.Limit,
			Total:       page.Total,
			TotalPages:  page.TotalPages,
			HasNextPage: page.HasNextPage(),
			HasPrevPage: page.HasPrevPage(),
		},
		Timestamp: time.Now().UTC(),
	})
}

// Error renders err as an error envelope. Anything that is not an AppError
// is reported as an internal error without leaking its text.
func Error(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		if err != nil {
			_ = c.Error(err)
		}
		appErr = errors.Internal("Internal server error", nil)
	}
	c.Set(ErrorKey, appErr)

	c.AbortWithStatusJSON(appErr.Status, Envelope{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now().UTC(),
	})
}
