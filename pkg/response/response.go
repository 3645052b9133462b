// Package response writes the API's JSON envelope.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

// Meta carries response annotations such as cache_hit or bulk counters.
type Meta map[string]interface{}

// Envelope is the body of every JSON response. Exactly one of Data or Error is set.
type Envelope struct {
	Data       interface{}        `json:"data,omitempty"`
	Error      *appErrors.Error   `json:"error,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	Meta       Meta               `json:"meta,omitempty"`
}

// responses carry session and personal data, so nothing is cached downstream
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends a success envelope. Empty meta maps are omitted.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	for _, m := range meta {
		for k, v := range m {
			if envelope.Meta == nil {
				envelope.Meta = Meta{}
			}
			envelope.Meta[k] = v
		}
	}
	c.JSON(status, envelope)
}

// OK responds with 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, nil)
}

// Created responds with 201.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Accepted responds with 202 for work that completes in the background.
func Accepted(c *gin.Context, data interface{}) {
	JSON(c, http.StatusAccepted, data, nil)
}

// Respond writes err when non-nil and data with status otherwise.
func Respond(c *gin.Context, status int, data interface{}, err error) {
	if err != nil {
		Error(c, err)
		return
	}
	if status == http.StatusNoContent {
		NoContent(c)
		return
	}
	JSON(c, status, data, nil)
}

// Error converts err to an application error and writes it with its status.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
