package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Tiisu/eco-action-hub/internal/domain"
)

func TestWriteDomainErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrValidation, http.StatusBadRequest},
		{fmt.Errorf("%w: weight must be positive", domain.ErrValidation), http.StatusBadRequest},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrInvalidStateTransition, http.StatusConflict},
		{domain.ErrEmailTaken, http.StatusConflict},
		{domain.ErrInsufficientPoints, http.StatusUnprocessableEntity},
		{domain.ErrOutOfStock, http.StatusUnprocessableEntity},
		{fmt.Errorf("the database exploded"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		if rec.Code != tc.status {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%v: expected json content type, got %q", tc.err, ct)
		}
	}
}

func TestInternalErrorsDoNotLeak(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, fmt.Errorf("pq: connection refused to 10.0.0.3"))

	if strings.Contains(rec.Body.String(), "10.0.0.3") {
		t.Error("internal error details must not reach the client")
	}
}

func TestProfileResponseOmitsPasswordHash(t *testing.T) {
	p := &domain.Profile{
		ID:           "p-1",
		Email:        "a@example.com",
		PasswordHash: "$2a$10$secret",
		Role:         domain.RoleUser,
	}

	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, toProfileResponse(p))

	if strings.Contains(rec.Body.String(), "secret") {
		t.Error("password hash must never be serialized")
	}
}
