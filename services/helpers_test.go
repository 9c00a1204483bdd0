package services_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"game-feedback-system/handlers"
	"game-feedback-system/middleware"
	"game-feedback-system/models"
	"game-feedback-system/services"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "feedback-test-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique shared-cache name per test so parallel tests don't collide
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.GameSession{}, &models.Feedback{}))
	return db
}

// newTestApp wires the full route surface (minus the global gateway check,
// covered by the middleware tests) over an in-memory DB.
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorEnvelope})
	userAuth := middleware.UserAuthMiddleware([]byte(testJWTSecret))

	handlers.SetupFeedbackRoutes(app, services.NewFeedbackService(db), userAuth)
	handlers.SetupSessionRoutes(app, services.NewSessionService(db), userAuth)
	handlers.SetupUserRoutes(app, services.NewUserService(db))

	return app, db
}

func signedUserToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func putFeedback(t *testing.T, app *fiber.App, userID, sessionID, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/feedback/"+sessionID, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-Token", signedUserToken(t, userID))
	return doRequest(t, app, req)
}

func getFeedback(t *testing.T, app *fiber.App, query string) *http.Response {
	t.Helper()
	target := "/api/v1/feedback"
	if query != "" {
		target += "?" + query
	}
	return doRequest(t, app, httptest.NewRequest(http.MethodGet, target, nil))
}

func decodeFeedbackList(t *testing.T, resp *http.Response) []models.FeedbackWithUser {
	t.Helper()
	defer resp.Body.Close()
	var out []models.FeedbackWithUser
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeFeedback(t *testing.T, resp *http.Response) models.Feedback {
	t.Helper()
	defer resp.Body.Close()
	var out models.Feedback
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func seedSession(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, db.Create(&models.GameSession{
		ID:       id,
		GameName: "Asteroid Run",
		Slug:     "asteroid-run",
	}).Error)
}

func seedFeedback(t *testing.T, db *gorm.DB, id, userID, sessionID string, rating int, createdAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.Feedback{
		ID:            id,
		UserID:        userID,
		GameSessionID: sessionID,
		Rating:        rating,
		Comment:       "seeded comment",
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}).Error)
}

func jsonDecode(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// testTime gives seeded rows deterministic, distinct timestamps.
func testTime(minutes int) time.Time {
	return time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
}

func feedbackCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Feedback{}).Count(&n).Error)
	return n
}
