package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"classadmin/internal/attendance"
	"classadmin/internal/identity"
	"classadmin/internal/roster"
	"classadmin/internal/submission"
)

func TestWriteErrStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "duplicate email", err: roster.ErrDuplicateEmail, want: http.StatusConflict},
		{name: "account taken", err: identity.ErrEmailTaken, want: http.StatusConflict},
		{name: "missing attendee", err: roster.ErrNotFound, want: http.StatusNotFound},
		{name: "missing submission", err: submission.ErrNotFound, want: http.StatusNotFound},
		{name: "bad credentials", err: identity.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{name: "wrapped validation", err: fmt.Errorf("%w: bad date", attendance.ErrInvalid), want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			writeErr(c, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestWriteErrHidesStorageFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	writeErr(c, errors.New("dial tcp 127.0.0.1:5432: connection refused"))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "5432") {
		t.Errorf("response leaked backend detail: %s", w.Body.String())
	}
}
