package models

import (
	"time"
)

// User is a local mirror of the profile service's user table, kept fresh by
// the sync worker. The profile service stays the source of truth; this
// service only reads it for the feedback query projection and user search.
// ID is the profile service's UUID.
type User struct {
	ID          string `json:"id" gorm:"primaryKey"`
	OauthName   string `json:"oauthName" gorm:"index;not null"`
	OauthImgSrc string `json:"oauthImgSrc"`
	Email       string `json:"email,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"index"`
}
