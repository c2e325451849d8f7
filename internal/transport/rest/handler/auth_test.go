package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pollgen/internal/model"
	"pollgen/internal/service"
)

func TestLoginEndpoint(t *testing.T) {
	h := NewAuthHandler(service.NewAuthService("teacher", "s3cret", "jwt-test-secret"))

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"username":"teacher","password":"s3cret"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp model.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" || resp.HostID == "" {
		t.Fatalf("response = %+v, want token and hostId", resp)
	}
}

func TestLoginEndpointRejections(t *testing.T) {
	h := NewAuthHandler(service.NewAuthService("teacher", "s3cret", "jwt-test-secret"))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"wrong password", `{"username":"teacher","password":"nope"}`, http.StatusUnauthorized},
		{"malformed body", `{"username":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Login(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestWriteServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrRoomNotFound, http.StatusNotFound},
		{model.ErrPollNotFound, http.StatusNotFound},
		{model.ErrReportNotFound, http.StatusNotFound},
		{model.ErrRoomConflict, http.StatusConflict},
		{fmt.Errorf("%w: name required", model.ErrValidation), http.StatusBadRequest},
		{model.ErrRoundState, http.StatusConflict},
		{model.ErrDuplicateVote, http.StatusConflict},
		{model.ErrVoteTooLate, http.StatusConflict},
		{model.ErrNotHost, http.StatusForbidden},
		{fmt.Errorf("mongo timeout"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tt.err)
		if rec.Code != tt.want {
			t.Fatalf("writeServiceError(%v) status = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}
