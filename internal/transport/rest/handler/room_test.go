package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pollgen/internal/cache"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
)

func newLeaderboardFixture(t *testing.T) (cache.LeaderboardCache, http.Handler) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	lb := cache.NewLeaderboardCache(client)

	h := NewRoomHandler(nil, nil, lb)
	r := mux.NewRouter()
	r.HandleFunc("/v1/rooms/{code}/leaderboard", h.Leaderboard).Methods("GET")
	return lb, r
}

func TestLeaderboardEndpoint(t *testing.T) {
	lb, router := newLeaderboardFixture(t)
	ctx := context.Background()

	if err := lb.SetScore(ctx, "ABC123", "s_alice", 150); err != nil {
		t.Fatalf("SetScore: %v", err)
	}
	if err := lb.SetScore(ctx, "ABC123", "s_bob", 220); err != nil {
		t.Fatalf("SetScore: %v", err)
	}

	// The code arrives display-formatted; the handler normalizes it.
	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/abc-123/leaderboard?top=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Leaderboard []cache.LeaderboardEntry `json:"leaderboard"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Leaderboard) != 1 || resp.Leaderboard[0].StudentID != "s_bob" {
		t.Fatalf("leaderboard = %+v, want only s_bob", resp.Leaderboard)
	}
}

func TestLeaderboardEndpointStudentRank(t *testing.T) {
	lb, router := newLeaderboardFixture(t)
	ctx := context.Background()

	if err := lb.SetScore(ctx, "ABC123", "s_alice", 150); err != nil {
		t.Fatalf("SetScore: %v", err)
	}
	if err := lb.SetScore(ctx, "ABC123", "s_bob", 220); err != nil {
		t.Fatalf("SetScore: %v", err)
	}

	// Alice is outside top=1 but still learns her own rank.
	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/ABC123/leaderboard?top=1&studentId=s_alice", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Leaderboard []cache.LeaderboardEntry `json:"leaderboard"`
		Rank        int64                    `json:"rank"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Rank != 2 {
		t.Fatalf("rank = %d, want 2", resp.Rank)
	}

	// An unknown student gets -1, not an error.
	req = httptest.NewRequest(http.MethodGet, "/v1/rooms/ABC123/leaderboard?studentId=s_nobody", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Rank != -1 {
		t.Fatalf("unknown student rank = %d, want -1", resp.Rank)
	}
}
