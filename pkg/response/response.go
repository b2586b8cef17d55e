package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
)

const errorContextKey = "response_error"

// ErrorBody is the shape of every failed response. Success bodies carry their
// payload at the top level instead.
type ErrorBody struct {
	Message string           `json:"message"`
	Error   *appErrors.Error `json:"error"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends data as the whole body, e.g. a bare array for list endpoints.
func JSON(c *gin.Context, status int, data interface{}) {
	noStore(c)
	c.JSON(status, data)
}

// Message sends an object holding message next to the given top-level fields.
// A "message" key in fields is overwritten.
func Message(c *gin.Context, status int, message string, fields gin.H) {
	body := gin.H{}
	for k, v := range fields {
		body[k] = v
	}
	body["message"] = message
	JSON(c, status, body)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, message string, fields gin.H) {
	Message(c, http.StatusCreated, message, fields)
}

// Error converts err into the envelope. The wrapped cause stays on the gin
// context so the request logger can record it.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Err != nil {
		c.Set(errorContextKey, appErr.Err)
	}
	noStore(c)
	c.JSON(appErr.Status, ErrorBody{Message: appErr.Message, Error: appErr})
}

// Abort is Error followed by aborting the handler chain; used by middleware.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// Cause returns the internal error recorded by Error, if any.
func Cause(c *gin.Context) error {
	if v, ok := c.Get(errorContextKey); ok {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

// File streams a downloadable attachment.
func File(c *gin.Context, filename, contentType string, body []byte) {
	noStore(c)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, body)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
