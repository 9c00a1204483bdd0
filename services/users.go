// services/users.go
package services

import (
	"strconv"
	"strings"

	"game-feedback-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// SearchUsers searches the mirrored users table, e.g. to populate the
// userId filter of the feedback query.
func (s *UserService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.Model(&models.User{}).Limit(limit)

	// Apply search filter if query is provided
	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where(
			"LOWER(oauth_name) LIKE ? OR LOWER(email) LIKE ?",
			searchTerm, searchTerm,
		)
	}

	var users []models.User
	if err := db.Order("oauth_name ASC").Find(&users).Error; err != nil {
		return err
	}

	// Minimal response struct — don't expose the whole mirror row
	type UserSearchResult struct {
		ID          string `json:"id"`
		OauthName   string `json:"oauthName"`
		OauthImgSrc string `json:"oauthImgSrc"`
	}

	res := make([]UserSearchResult, len(users))
	for i, u := range users {
		res[i] = UserSearchResult{
			ID:          u.ID,
			OauthName:   u.OauthName,
			OauthImgSrc: u.OauthImgSrc,
		}
	}

	return c.JSON(res)
}
