package libraryapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Profile is the signed-in user as the backend reports it. Role is the raw
// backend string; callers normalize it.
type Profile struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ErrMalformedProfile is returned when the profile response lacks the
// fields a session needs.
var ErrMalformedProfile = errors.New("libraryapi: malformed profile")

// ObtainToken exchanges credentials for a bearer token.
func (c *Client) ObtainToken(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		Access string `json:"access"`
	}
	if err := c.postJSON(ctx, "obtain_token", "", "/api/token/", body, &out, http.StatusOK); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", &APIError{Op: "obtain_token", Status: http.StatusOK, Detail: "no access token in response"}
	}
	return out.Access, nil
}

// Profile fetches the user the token belongs to.
func (c *Client) Profile(ctx context.Context, token string) (Profile, error) {
	var p Profile
	if err := c.getJSON(ctx, "profile", token, c.profilePath, nil, &p); err != nil {
		return Profile{}, err
	}
	if strings.TrimSpace(p.Email) == "" || strings.TrimSpace(p.Role) == "" {
		return Profile{}, ErrMalformedProfile
	}
	return p, nil
}
