package services

import (
	"errors"
	"time"

	"game-feedback-system/middleware"
	"game-feedback-system/models"
	"game-feedback-system/views"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultPageSize = 25

type FeedbackService struct {
	DB       *gorm.DB
	validate *validator.Validate
}

func NewFeedbackService(db *gorm.DB) *FeedbackService {
	return &FeedbackService{DB: db, validate: validator.New()}
}

// Pointer fields so a zero rating counts as supplied — 0 is a valid rating,
// not an absent one.
type upsertFeedbackInput struct {
	Comment *string `json:"comment" validate:"required,min=1,max=2000"`
	Rating  *int    `json:"rating" validate:"required,min=0,max=4"`
}

// UpsertFeedback creates or replaces the caller's feedback for one game
// session. The (user_id, game_session_id) pair is the upsert key, so a user
// ends up with exactly one row per session no matter how often they submit.
func (s *FeedbackService) UpsertFeedback(c *fiber.Ctx) error {
	gameSessionID := c.Params("gameSessionId")

	userID := middleware.UserID(c)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user context")
	}

	var input upsertFeedbackInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	// Validation runs before any store access
	if err := s.validate.Struct(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	// Verify game session exists
	var session models.GameSession
	if err := s.DB.First(&session, "id = ?", gameSessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Game session not found")
		}
		return err
	}

	feedback := models.Feedback{
		ID:            uuid.NewString(),
		UserID:        userID,
		GameSessionID: gameSessionID,
		Rating:        *input.Rating,
		Comment:       *input.Comment,
	}

	// Single atomic create-or-update on the compound key. No read-then-write
	// window: concurrent submitters are serialized by the unique index.
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "game_session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"comment", "rating", "updated_at"}),
	}).Create(&feedback).Error; err != nil {
		return err
	}

	// Re-read by the compound key so the update path returns the stored row
	// (original id and created_at), not the candidate insert.
	var stored models.Feedback
	if err := s.DB.First(&stored, "user_id = ? AND game_session_id = ?", userID, gameSessionID).Error; err != nil {
		return err
	}

	return c.JSON(stored)
}

// ===== Query side =====

type feedbackQueryParams struct {
	UserID        string `query:"userId" validate:"omitempty,max=36"`
	GameSessionID string `query:"gameSessionId" validate:"omitempty,max=36"`
	Rating        *int   `query:"rating" validate:"omitempty,min=0,max=4"`
	CreatedAtGTE  string `query:"createdAtGTE"`
	CreatedAtLTE  string `query:"createdAtLTE"`
	UpdatedAtGTE  string `query:"updatedAtGTE"`
	UpdatedAtLTE  string `query:"updatedAtLTE"`
	Cursor        string `query:"cursor" validate:"omitempty,max=36"`
	PageSize      *int   `query:"pageSize" validate:"omitempty,min=1,max=1000"`
}

// feedbackPredicate is one ANDed filter clause. Absent query params simply
// contribute no predicate.
type feedbackPredicate interface {
	apply(db *gorm.DB) *gorm.DB
}

type equalsPredicate struct {
	column string
	value  interface{}
}

func (p equalsPredicate) apply(db *gorm.DB) *gorm.DB {
	return db.Where(p.column+" = ?", p.value)
}

type rangePredicate struct {
	column string
	op     string // ">=" or "<="
	value  time.Time
}

func (p rangePredicate) apply(db *gorm.DB) *gorm.DB {
	return db.Where(p.column+" "+p.op+" ?", p.value)
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDateParam(name, raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fiber.NewError(fiber.StatusBadRequest, name+" must be an RFC3339 or YYYY-MM-DD date")
}

func buildFeedbackFilters(params feedbackQueryParams) ([]feedbackPredicate, error) {
	var filters []feedbackPredicate

	if params.UserID != "" {
		filters = append(filters, equalsPredicate{column: "user_id", value: params.UserID})
	}

	if params.GameSessionID != "" {
		filters = append(filters, equalsPredicate{column: "game_session_id", value: params.GameSessionID})
	}

	if params.Rating != nil {
		filters = append(filters, equalsPredicate{column: "rating", value: *params.Rating})
	}

	dateParams := []struct {
		name   string
		raw    string
		column string
		op     string
	}{
		{"createdAtGTE", params.CreatedAtGTE, "created_at", ">="},
		{"createdAtLTE", params.CreatedAtLTE, "created_at", "<="},
		{"updatedAtGTE", params.UpdatedAtGTE, "updated_at", ">="},
		{"updatedAtLTE", params.UpdatedAtLTE, "updated_at", "<="},
	}
	for _, dp := range dateParams {
		if dp.raw == "" {
			continue
		}
		ts, err := parseDateParam(dp.name, dp.raw)
		if err != nil {
			return nil, err
		}
		filters = append(filters, rangePredicate{column: dp.column, op: dp.op, value: ts})
	}

	return filters, nil
}

// QueryFeedback lists feedback newest-first with conjunctive filters and
// cursor pagination. Ordering is (created_at DESC, id DESC) so pages are
// gap-free even when timestamps collide; the cursor names the last id the
// caller saw and the page starts strictly after that row. An unknown cursor
// yields an empty page. The response is a flat array — the client derives
// the next cursor from the last element's id.
func (s *FeedbackService) QueryFeedback(c *fiber.Ctx) error {
	var params feedbackQueryParams
	if err := c.QueryParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := s.validate.Struct(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	filters, err := buildFeedbackFilters(params)
	if err != nil {
		return err
	}

	pageSize := defaultPageSize
	if params.PageSize != nil {
		pageSize = *params.PageSize
	}

	db := s.DB.Model(&models.Feedback{})
	for _, f := range filters {
		db = f.apply(db)
	}

	if params.Cursor != "" {
		var anchor models.Feedback
		if err := s.DB.First(&anchor, "id = ?", params.Cursor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// nothing comes after a row that doesn't exist
				return c.JSON([]models.FeedbackWithUser{})
			}
			return err
		}
		db = db.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			anchor.CreatedAt, anchor.CreatedAt, anchor.ID,
		)
	}

	var rows []models.Feedback
	if err := db.Order("created_at DESC, id DESC").Limit(pageSize).Find(&rows).Error; err != nil {
		return err
	}

	joined, err := s.joinUserSummaries(rows)
	if err != nil {
		return err
	}
	return c.JSON(joined)
}

// joinUserSummaries attaches the minimal user projection to each row. Rows
// whose user hasn't been mirrored yet get an empty projection rather than
// being dropped; a failed lookup is a store error and propagates.
func (s *FeedbackService) joinUserSummaries(rows []models.Feedback) ([]models.FeedbackWithUser, error) {
	userIDs := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if !seen[row.UserID] {
			seen[row.UserID] = true
			userIDs = append(userIDs, row.UserID)
		}
	}

	summaries := make(map[string]models.UserSummary, len(userIDs))
	if len(userIDs) > 0 {
		var users []models.User
		if err := s.DB.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			summaries[u.ID] = models.UserSummary{OauthImgSrc: u.OauthImgSrc, OauthName: u.OauthName}
		}
	}

	res := make([]models.FeedbackWithUser, len(rows))
	for i, row := range rows {
		res[i] = models.FeedbackWithUser{
			ID:            row.ID,
			UserID:        row.UserID,
			GameSessionID: row.GameSessionID,
			CreatedAt:     row.CreatedAt,
			UpdatedAt:     row.UpdatedAt,
			Rating:        row.Rating,
			Comment:       row.Comment,
			User:          summaries[row.UserID],
		}
	}
	return res, nil
}

// GetSessionStats returns the live rating aggregate for one game session.
// The scheduler keeps the denormalized copy on game_sessions; this endpoint
// always computes from the feedback rows.
func (s *FeedbackService) GetSessionStats(c *fiber.Ctx) error {
	gameSessionID := c.Query("gameSessionId")
	if gameSessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "gameSessionId is required")
	}

	var count int64
	if err := s.DB.Model(&models.Feedback{}).Where("game_session_id = ?", gameSessionID).Count(&count).Error; err != nil {
		return err
	}

	var avgRating float64
	if count > 0 {
		if err := s.DB.Model(&models.Feedback{}).
			Where("game_session_id = ?", gameSessionID).
			Select("AVG(rating)").Scan(&avgRating).Error; err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{
		"gameSessionId": gameSessionID,
		"count":         count,
		"averageRating": avgRating,
	})
}

// GetFeedbackFragment serves the HTML list-item fragment for one feedback
// record, joined with its user projection.
func (s *FeedbackService) GetFeedbackFragment(c *fiber.Ctx) error {
	id := c.Params("id")

	var feedback models.Feedback
	if err := s.DB.First(&feedback, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Feedback not found")
		}
		return err
	}

	joined, err := s.joinUserSummaries([]models.Feedback{feedback})
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return views.RenderFeedbackItem(c, joined[0])
}
