package services_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"game-feedback-system/models"

	"github.com/stretchr/testify/require"
)

func TestUpsertFeedbackCreatesRow(t *testing.T) {
	app, db := newTestApp(t)
	seedSession(t, db, "sess-1")

	resp := putFeedback(t, app, "user-1", "sess-1", `{"comment":"great run","rating":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeFeedback(t, resp)
	require.NotEmpty(t, got.ID)
	require.Equal(t, "user-1", got.UserID)
	require.Equal(t, "sess-1", got.GameSessionID)
	require.Equal(t, 3, got.Rating)
	require.Equal(t, "great run", got.Comment)
	require.False(t, got.CreatedAt.IsZero())

	require.Equal(t, int64(1), feedbackCount(t, db))
}

func TestUpsertFeedbackIdempotentKey(t *testing.T) {
	app, db := newTestApp(t)
	seedSession(t, db, "sess-1")

	first := decodeFeedback(t, putFeedback(t, app, "user-1", "sess-1", `{"comment":"first try","rating":1}`))
	second := decodeFeedback(t, putFeedback(t, app, "user-1", "sess-1", `{"comment":"changed my mind","rating":4}`))

	// still exactly one row for the (user, session) pair
	require.Equal(t, int64(1), feedbackCount(t, db))

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 4, second.Rating)
	require.Equal(t, "changed my mind", second.Comment)
	require.True(t, second.CreatedAt.Equal(first.CreatedAt), "createdAt must not move on update")
	require.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	// a different user on the same session gets their own row
	resp := putFeedback(t, app, "user-2", "sess-1", `{"comment":"me too","rating":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int64(2), feedbackCount(t, db))
}

func TestUpsertFeedbackValidationBoundaries(t *testing.T) {
	longOK := strings.Repeat("a", 2000)
	longBad := strings.Repeat("a", 2001)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"rating lower bound", `{"comment":"ok","rating":0}`, http.StatusOK},
		{"rating upper bound", `{"comment":"ok","rating":4}`, http.StatusOK},
		{"rating below range", `{"comment":"ok","rating":-1}`, http.StatusBadRequest},
		{"rating above range", `{"comment":"ok","rating":5}`, http.StatusBadRequest},
		{"rating missing", `{"comment":"ok"}`, http.StatusBadRequest},
		{"comment missing", `{"rating":2}`, http.StatusBadRequest},
		{"comment empty", `{"comment":"","rating":2}`, http.StatusBadRequest},
		{"comment at max length", fmt.Sprintf(`{"comment":%q,"rating":2}`, longOK), http.StatusOK},
		{"comment over max length", fmt.Sprintf(`{"comment":%q,"rating":2}`, longBad), http.StatusBadRequest},
		{"body not json", `not json at all`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, db := newTestApp(t)
			seedSession(t, db, "sess-1")

			resp := putFeedback(t, app, "user-1", "sess-1", tc.body)
			require.Equal(t, tc.want, resp.StatusCode)

			if tc.want != http.StatusOK {
				require.Equal(t, int64(0), feedbackCount(t, db), "rejected input must not write")
			}
		})
	}
}

func TestUpsertFeedbackValidationPrecedesExistenceCheck(t *testing.T) {
	app, _ := newTestApp(t)

	// invalid body against a session that doesn't exist: validation answers first
	resp := putFeedback(t, app, "user-1", "no-such-session", `{"comment":"ok","rating":9}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpsertFeedbackSessionNotFound(t *testing.T) {
	app, db := newTestApp(t)

	resp := putFeedback(t, app, "user-1", "no-such-session", `{"comment":"ok","rating":2}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, jsonDecode(resp, &body))
	require.Equal(t, "Game session not found", body["msg"])

	require.Equal(t, int64(0), feedbackCount(t, db))
}

func TestUpsertFeedbackRequiresUserToken(t *testing.T) {
	app, db := newTestApp(t)
	seedSession(t, db, "sess-1")

	// no token at all
	req := httptest.NewRequest(http.MethodPut, "/api/v1/feedback/sess-1", strings.NewReader(`{"comment":"ok","rating":2}`))
	req.Header.Set("Content-Type", "application/json")
	resp := doRequest(t, app, req)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// garbage token
	req = httptest.NewRequest(http.MethodPut, "/api/v1/feedback/sess-1", strings.NewReader(`{"comment":"ok","rating":2}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-Token", "not-a-jwt")
	resp = doRequest(t, app, req)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.Equal(t, int64(0), feedbackCount(t, db))
}

func TestFeedbackMethodGating(t *testing.T) {
	app, db := newTestApp(t)
	seedSession(t, db, "sess-1")

	// GET against the write path
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback/sess-1", nil)
	resp := doRequest(t, app, req)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	// POST against the write path
	req = httptest.NewRequest(http.MethodPost, "/api/v1/feedback/sess-1", strings.NewReader(`{"comment":"ok","rating":2}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-Token", signedUserToken(t, "user-1"))
	resp = doRequest(t, app, req)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	// PUT against the query path
	req = httptest.NewRequest(http.MethodPut, "/api/v1/feedback", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp = doRequest(t, app, req)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	var body map[string]string
	require.NoError(t, jsonDecode(resp, &body))
	require.Equal(t, "method not allowed", body["msg"])

	require.Equal(t, int64(0), feedbackCount(t, db), "gated methods must not touch the store")
}

func TestSessionStats(t *testing.T) {
	app, db := newTestApp(t)
	seedSession(t, db, "sess-1")
	seedFeedback(t, db, "f1", "user-1", "sess-1", 1, testTime(0))
	seedFeedback(t, db, "f2", "user-2", "sess-1", 3, testTime(1))
	seedFeedback(t, db, "f3", "user-3", "other", 4, testTime(2))

	resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/feedback/stats?gameSessionId=sess-1", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		GameSessionID string  `json:"gameSessionId"`
		Count         int64   `json:"count"`
		AverageRating float64 `json:"averageRating"`
	}
	require.NoError(t, jsonDecode(resp, &stats))
	require.Equal(t, "sess-1", stats.GameSessionID)
	require.Equal(t, int64(2), stats.Count)
	require.InDelta(t, 2.0, stats.AverageRating, 0.0001)

	// missing param
	resp = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/feedback/stats", nil))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeedbackFragment(t *testing.T) {
	app, db := newTestApp(t)
	seedSession(t, db, "sess-1")
	require.NoError(t, db.Create(&models.User{
		ID:          "user-1",
		OauthName:   "Ada Lovelace",
		OauthImgSrc: "https://cdn.example.com/avatars/user-1.png",
	}).Error)
	seedFeedback(t, db, "f1", "user-1", "sess-1", 4, testTime(0))

	resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/feedback/f1/fragment", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	html := readBody(t, resp)
	require.Contains(t, html, "Ada Lovelace")
	require.Contains(t, html, "https://cdn.example.com/avatars/user-1.png")
	require.Contains(t, html, "seeded comment")

	resp = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/feedback/missing/fragment", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
