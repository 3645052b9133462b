package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

func perform(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)
	var body map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestJSONMergesMeta(t *testing.T) {
	rec, body := perform(t, func(c *gin.Context) {
		JSON(c, http.StatusOK, []string{"a"}, nil, map[string]interface{}{"cache_hit": true}, nil, map[string]interface{}{"total": 1})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, map[string]interface{}{"cache_hit": true, "total": float64(1)}, body["meta"])
	assert.NotContains(t, body, "error")
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	_, body := perform(t, func(c *gin.Context) {
		JSON(c, http.StatusOK, "x", nil, map[string]interface{}{})
	})
	assert.NotContains(t, body, "meta")
}

func TestAccepted(t *testing.T) {
	rec, body := perform(t, func(c *gin.Context) { Accepted(c, gin.H{"job_id": "j1"}) })
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "j1", body["data"].(map[string]interface{})["job_id"])
}

func TestRespond(t *testing.T) {
	rec, body := perform(t, func(c *gin.Context) {
		Respond(c, http.StatusOK, nil, appErrors.Clone(appErrors.ErrNotFound, "section not found"))
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "NOT_FOUND", errBody["code"])
	assert.Equal(t, "section not found", errBody["message"])

	rec, _ = perform(t, func(c *gin.Context) { Respond(c, http.StatusNoContent, nil, nil) })
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body = perform(t, func(c *gin.Context) { Respond(c, http.StatusOK, nil, errors.New("boom")) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body, "error")
}
