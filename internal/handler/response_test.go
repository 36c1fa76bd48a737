package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/smilecare/clinic-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func record(t *testing.T, respond func(c *gin.Context)) (*httptest.ResponseRecorder, *Response) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respond(c)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, &resp
}

func TestRespondErrorExpected(t *testing.T) {
	w, resp := record(t, func(c *gin.Context) {
		RespondError(c, apperrors.InvalidTransition("appointment is already canceled"))
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "appointment is already canceled", resp.Message)
}

func TestRespondErrorHidesSystemFailures(t *testing.T) {
	w, resp := record(t, func(c *gin.Context) {
		RespondError(c, apperrors.Persistence("insert failed", errors.New("pq: connection refused")))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "operation failed", resp.Message)
	assert.NotContains(t, resp.Message, "connection refused")
}

func TestRespondErrorPlainError(t *testing.T) {
	w, resp := record(t, func(c *gin.Context) {
		RespondError(c, errors.New("boom"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "operation failed", resp.Message)
}

func TestRespondMaybeNoopAlreadyInState(t *testing.T) {
	w, resp := record(t, func(c *gin.Context) {
		RespondMaybeNoop(c, gin.H{"status": "canceled"}, apperrors.AlreadyInState("canceled"))
	})

	// A repeated transition reads as success, not as a conflict.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestRespondMaybeNoopRealError(t *testing.T) {
	w, _ := record(t, func(c *gin.Context) {
		RespondMaybeNoop(c, nil, apperrors.PermissionDenied(""))
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRespondMaybeNoopSuccess(t *testing.T) {
	w, resp := record(t, func(c *gin.Context) {
		RespondMaybeNoop(c, gin.H{"status": "completed"}, nil)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", resp.Status)
}
