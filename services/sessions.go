package services

import (
	"errors"

	"game-feedback-system/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type SessionService struct {
	DB       *gorm.DB
	validate *validator.Validate
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db, validate: validator.New()}
}

type createSessionInput struct {
	GameName string `json:"gameName" validate:"required,min=1,max=200"`
}

// CreateGameSession registers a session so feedback can be attached to it.
// The slug is a shareable, human-readable handle derived from the game name.
func (s *SessionService) CreateGameSession(c *fiber.Ctx) error {
	var input createSessionInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	session := models.GameSession{
		ID:       uuid.NewString(),
		GameName: input.GameName,
		Slug:     slug.Make(input.GameName),
	}

	if err := s.DB.Create(&session).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// GetGameSession returns one session with its denormalized rating aggregates.
func (s *SessionService) GetGameSession(c *fiber.Ctx) error {
	id := c.Params("id")

	var session models.GameSession
	if err := s.DB.First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Game session not found")
		}
		return err
	}

	return c.JSON(session)
}
