package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gruve-ai/scheduling-assistant/internal/model"
)

// DirectoryClient talks to the user directory service.
type DirectoryClient struct {
	client
}

// NewDirectoryClient creates a directory gateway client.
func NewDirectoryClient(baseURL string, timeout time.Duration) *DirectoryClient {
	return &DirectoryClient{client: newClient("directory", baseURL, timeout)}
}

// Users fetches the full directory listing. Entries with either field empty
// are dropped; callers build their own name-to-email map from the rest.
func (c *DirectoryClient) Users(ctx context.Context) ([]model.DirectoryUser, error) {
	var raw []struct {
		DisplayName       string `json:"displayName"`
		Mail              string `json:"mail"`
		Email             string `json:"email"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := c.do(ctx, http.MethodGet, "/graph/users", nil, &raw); err != nil {
		return nil, err
	}

	users := make([]model.DirectoryUser, 0, len(raw))
	for _, u := range raw {
		email := u.Mail
		if email == "" {
			email = u.Email
		}
		if email == "" {
			email = u.UserPrincipalName
		}
		if u.DisplayName == "" || email == "" {
			continue
		}
		users = append(users, model.DirectoryUser{DisplayName: u.DisplayName, Email: email})
	}
	return users, nil
}
