// models/feedback.go
package models

import (
	"time"
)

// Feedback is one user's rating+comment for one game session. The compound
// (user_id, game_session_id) unique index is the upsert key; ID is the
// generated row identifier used for cursors.
type Feedback struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	UserID        string    `json:"userId" gorm:"uniqueIndex:idx_feedback_user_session;index;not null"`
	GameSessionID string    `json:"gameSessionId" gorm:"uniqueIndex:idx_feedback_user_session;index;not null"`
	Rating        int       `json:"rating" gorm:"check:rating >= 0 and rating <= 4"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type GameSession struct {
	ID       string `json:"id" gorm:"primaryKey"`
	GameName string `json:"gameName" gorm:"not null"`
	Slug     string `json:"slug" gorm:"index"`

	// 🌟 Denormalized from feedback rows by the stats scheduler
	AverageRating float64 `json:"averageRating" gorm:"default:0"`
	FeedbackCount int64   `json:"feedbackCount" gorm:"default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserSummary is the minimal user projection embedded in query results.
type UserSummary struct {
	OauthImgSrc string `json:"oauthImgSrc"`
	OauthName   string `json:"oauthName"`
}

// FeedbackWithUser is the query handler's response shape and the input to the
// display fragment.
type FeedbackWithUser struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	GameSessionID string      `json:"gameSessionId"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	Rating        int         `json:"rating"`
	Comment       string      `json:"comment"`
	User          UserSummary `json:"user"`
}
