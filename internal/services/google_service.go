package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/elod87/service-book-2/internal/config"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProfile is the subset of the Google userinfo response used to
// create or match an account.
type GoogleProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// GoogleService drives the OAuth dance with Google: consent redirect,
// code exchange and profile fetch.
type GoogleService struct {
	oauth *oauth2.Config
}

// NewGoogleService constructs a GoogleService from the configured
// client credentials.
func NewGoogleService(cfg *config.Config) *GoogleService {
	return &GoogleService{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleSecret,
			RedirectURL:  cfg.EndpointURL + "/auth/google/redirect",
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the Google consent page URL for this application.
func (s *GoogleService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// FetchProfile exchanges the authorization code and loads the user's
// Google profile.
func (s *GoogleService) FetchProfile(ctx context.Context, code string) (*GoogleProfile, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	resp, err := s.oauth.Client(ctx, tok).Get(userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch google profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google userinfo returned %d: %s", resp.StatusCode, body)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode google profile: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("google profile has no id")
	}

	return &profile, nil
}
