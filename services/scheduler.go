// services/scheduler.go
package services

import (
	"log"
	"time"

	"game-feedback-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartStatsScheduler keeps the denormalized average_rating/feedback_count
// columns on game_sessions in step with the feedback rows.
func (s *FeedbackService) StartStatsScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: refresh per-session rating aggregates
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var sessions []models.GameSession
			if err := s.DB.Find(&sessions).Error; err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, session := range sessions {
				var count int64
				if err := s.DB.Model(&models.Feedback{}).
					Where("game_session_id = ?", session.ID).
					Count(&count).Error; err != nil {
					log.Printf("[Scheduler] Failed to count feedback for session %s: %v", session.ID, err)
					continue
				}

				var avgRating float64
				if count > 0 {
					if err := s.DB.Model(&models.Feedback{}).
						Where("game_session_id = ?", session.ID).
						Select("AVG(rating)").Scan(&avgRating).Error; err != nil {
						log.Printf("[Scheduler] Failed to average ratings for session %s: %v", session.ID, err)
						continue
					}
				}

				if count == session.FeedbackCount && avgRating == session.AverageRating {
					continue
				}

				if err := s.DB.Model(&models.GameSession{}).
					Where("id = ?", session.ID).
					Updates(map[string]interface{}{
						"average_rating": avgRating,
						"feedback_count": count,
					}).Error; err != nil {
					log.Printf("[Scheduler] Failed to update stats for session %s: %v", session.ID, err)
				}
			}
		}),
	)
}
