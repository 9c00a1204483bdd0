// game-feedback-system/services/profile_client.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// ProfileServiceClient talks to the profile service's change feed so the
// sync worker can mirror users locally.
type ProfileServiceClient struct {
	BaseURL      string
	EndpointPath string // e.g., "/api/v1/public/profiles"
	Token        string
	Client       *http.Client
}

// ProfileUser matches the JSON the profile service returns per user.
type ProfileUser struct {
	ID          string    `json:"id"`
	OauthName   string    `json:"oauth_name"`
	OauthImgSrc string    `json:"oauth_img_src"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type profileChangesResponse struct {
	Users []ProfileUser `json:"users"`
}

func NewProfileServiceClient(baseURL, endpointPath, token string) *ProfileServiceClient {
	return &ProfileServiceClient{
		BaseURL:      baseURL,
		EndpointPath: endpointPath,
		Token:        token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchChangedProfiles returns every profile changed since the given time.
func (c *ProfileServiceClient) FetchChangedProfiles(ctx context.Context, since time.Time) ([]ProfileUser, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid profile service URL '%s': %w", c.BaseURL, err)
	}

	// Safely join base URL and endpoint path (handles trailing/leading slashes)
	endpointURL := base.JoinPath(c.EndpointPath)
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request to profile service failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if readErr != nil {
			log.Printf("[PROFILE] ⚠️ Failed to read error body from %s: %v", finalURL, readErr)
		}
		return nil, fmt.Errorf("profile service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response profileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode profile service response: %w", err)
	}

	return response.Users, nil
}
