package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"rewear/internal/service"
	"rewear/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func failWith(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h := &Handler{}
	h.fail(c, err)
	return w
}

func TestFailStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrNotOwner, http.StatusForbidden},
		{service.ErrNotParticipant, http.StatusForbidden},
		{service.ErrItemUnavailable, http.StatusBadRequest},
		{service.ErrInsufficientPoints, http.StatusBadRequest},
		{service.ErrInvalidSignature, http.StatusBadRequest},
		{store.ErrDuplicate, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := failWith(t, tc.err)
		assert.Equal(t, tc.status, w.Code, "error %v", tc.err)
		assert.Contains(t, w.Body.String(), `"success":false`)
	}
}

func TestWrappedErrorsStillMap(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), store.ErrConflict)
	w := failWith(t, wrapped)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
