// Package oauth implements the Google authorization code flow.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Provider is an OAuth identity provider.
type Provider interface {
	AuthURL(state string) string
	Profile(ctx context.Context, code string) (models.GoogleProfile, error)
}

type GoogleProvider struct {
	conf        *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: defaultUserInfoURL,
	}
}

func (g *GoogleProvider) AuthURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

type userInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Profile exchanges the authorization code and fetches the signed-in user's profile.
func (g *GoogleProvider) Profile(ctx context.Context, code string) (models.GoogleProfile, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return models.GoogleProfile{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return models.GoogleProfile{}, err
	}

	resp, err := g.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return models.GoogleProfile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.GoogleProfile{}, fmt.Errorf("fetch userinfo: unexpected status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.GoogleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}

	return models.GoogleProfile{GoogleID: info.Sub, Email: info.Email, Name: info.Name}, nil
}

// StateToken returns a random value for the state parameter.
func StateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
