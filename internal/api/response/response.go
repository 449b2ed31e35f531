// Package response renders the API envelope: {status, message, data}, with
// list metadata attached on paginated listings.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YassinSultan/CoreSystem-Backend/internal/apierr"
	"github.com/YassinSultan/CoreSystem-Backend/internal/crud"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

type Envelope struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
	Result     any    `json:"result,omitempty"`
	TotalItems *int64 `json:"totalItems,omitempty"`
	TotalPages *int   `json:"totalPages,omitempty"`
	Page       *int   `json:"page,omitempty"`
	Limit      *int   `json:"limit,omitempty"`
}

func Success(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Envelope{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// List renders a listing: the documents ride in data, result carries their
// count on this page. Pagination metadata appears only when the caller asked
// for a page.
func List(c *gin.Context, list *crud.ListResult) {
	env := Envelope{
		Status:     StatusSuccess,
		Message:    "تم جلب جميع البيانات بنجاح",
		Data:       list.Result,
		Result:     len(list.Result),
		TotalItems: &list.TotalItems,
	}
	if list.Paginated {
		env.TotalPages = &list.TotalPages
		env.Page = &list.Page
		env.Limit = &list.Limit
	}
	c.JSON(http.StatusOK, env)
}

// Error maps an error through the taxonomy: known kinds keep their message
// and status, anything else turns into a generic 500.
func Error(c *gin.Context, err error) {
	status := apierr.HTTPStatus(err)
	envStatus := StatusFail
	if status >= http.StatusInternalServerError {
		envStatus = StatusError
	}
	c.JSON(status, Envelope{
		Status:  envStatus,
		Message: apierr.UserMessage(err),
	})
}

func Fail(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, Envelope{
		Status:  StatusFail,
		Message: message,
	})
}
