package middleware

import (
	"context"
	"net/http"
	"strings"

	"pollgen/internal/service"
)

type contextKey string

const (
	HostIDKey    contextKey = "hostId"
	StudentIDKey contextKey = "studentId"
	RoomCodeKey  contextKey = "roomCode"
)

// AuthMiddleware provides JWT authentication middleware.
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireHost validates a host JWT from the Authorization header.
func (m *AuthMiddleware) RequireHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateHostToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), HostIDKey, claims.HostID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireIdentity accepts either a host or a student token, for
// endpoints both roles may call (report fetch).
func (m *AuthMiddleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		if claims, err := m.authSvc.ValidateHostToken(token); err == nil && claims.HostID != "" {
			ctx := context.WithValue(r.Context(), HostIDKey, claims.HostID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		if claims, err := m.authSvc.ValidateStudentToken(token); err == nil && claims.StudentID != "" {
			ctx := r.Context()
			ctx = context.WithValue(ctx, StudentIDKey, claims.StudentID)
			ctx = context.WithValue(ctx, RoomCodeKey, claims.RoomCode)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
	})
}

// GetHostID extracts the host id from the request context.
func GetHostID(ctx context.Context) string {
	if v := ctx.Value(HostIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetStudentID extracts the student id from the request context.
func GetStudentID(ctx context.Context) string {
	if v := ctx.Value(StudentIDKey); v != nil {
		return v.(string)
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
