// workers/user_sync_worker.go
package workers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"game-feedback-system/models"
	"game-feedback-system/services"
	"game-feedback-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserSyncWorker mirrors user profiles (profile service → users) so feedback
// queries can join oauth_name/oauth_img_src without a cross-service call.
type UserSyncWorker struct {
	db       *gorm.DB
	profiles *services.ProfileServiceClient
	interval time.Duration
}

func NewUserSyncWorker(db *gorm.DB, profiles *services.ProfileServiceClient) *UserSyncWorker {
	return &UserSyncWorker{
		db:       db,
		profiles: profiles,
		interval: 1 * time.Minute,
	}
}

func (w *UserSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting User Sync Worker (profile service → users)…")
	go w.run(ctx)
}

func (w *UserSyncWorker) run(ctx context.Context) {
	// Initial sync (backfill if needed) - sync from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial user sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Incremental syncs resume from the newest row we already hold
			lastSyncTime := w.getLastSyncTime()
			if err := w.syncBatch(ctx, lastSyncTime); err != nil {
				log.Printf("❌ User sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ User Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent updated_at in the local users table.
func (w *UserSyncWorker) getLastSyncTime() time.Time {
	var newest models.User
	err := w.db.Order("updated_at DESC").First(&newest).Error
	if err != nil || newest.UpdatedAt.IsZero() {
		return time.Unix(0, 0) // Fallback to epoch if no records or error
	}
	return newest.UpdatedAt
}

// syncBatch fetches changed profiles and upserts them into the users table.
func (w *UserSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	profileUsers, err := w.profiles.FetchChangedProfiles(ctx, since)
	if err != nil {
		return err
	}

	if len(profileUsers) == 0 {
		return nil
	}

	log.Printf("[SYNC] 📥 Processing %d user(s) from profile service…", len(profileUsers))

	var upsertCount, errorCount int
	for _, remoteUser := range profileUsers {
		localUser := models.User{
			ID:          remoteUser.ID,
			OauthName:   remoteUser.OauthName,
			OauthImgSrc: w.mirrorAvatar(ctx, remoteUser.ID, remoteUser.OauthImgSrc),
			Email:       remoteUser.Email,
			CreatedAt:   remoteUser.CreatedAt,
			UpdatedAt:   remoteUser.UpdatedAt,
		}

		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"oauth_name", "oauth_img_src", "email", "updated_at",
			}),
		}).Create(&localUser).Error; err != nil {
			log.Printf("[SYNC] ❌ Failed to upsert user %s: %v", remoteUser.ID, err)
			errorCount++
			continue
		}
		upsertCount++
	}

	log.Printf("[SYNC] ✅ Upserted %d user(s), %d error(s)", upsertCount, errorCount)
	return nil
}

// mirrorAvatar copies the user's OAuth avatar into R2 and returns the CDN
// URL, so the list UI never hotlinks third-party image hosts. Falls back to
// the original URL when R2 is not configured or the copy fails.
func (w *UserSyncWorker) mirrorAvatar(ctx context.Context, userID, src string) string {
	if !utils.R2Configured() || src == "" {
		return src
	}

	req, err := http.NewRequestWithContext(ctx, "GET", src, nil)
	if err != nil {
		log.Printf("[SYNC] ⚠️ Bad avatar URL for user %s: %v", userID, err)
		return src
	}

	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		log.Printf("[SYNC] ⚠️ Avatar fetch failed for user %s: %v", userID, err)
		return src
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[SYNC] ⚠️ Avatar fetch for user %s returned %d", userID, resp.StatusCode)
		return src
	}

	// Avatars are small; cap the read anyway
	data, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		log.Printf("[SYNC] ⚠️ Avatar read failed for user %s: %v", userID, err)
		return src
	}

	ext := path.Ext(strings.SplitN(src, "?", 2)[0])
	if ext == "" {
		ext = ".png"
	}
	key := fmt.Sprintf("avatars/%s%s", userID, ext)

	cdnURL, err := utils.UploadBytesToR2(key, resp.Header.Get("Content-Type"), data)
	if err != nil {
		log.Printf("[SYNC] ⚠️ Avatar upload failed for user %s: %v", userID, err)
		return src
	}

	return cdnURL
}
