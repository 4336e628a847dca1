package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/nerimity/nerimity-go/internal/store"
)

// LoginResponse carries the bearer token issued on a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

// Login authenticates with an email or a "username:tag" pair. Does not
// require an existing token.
func (c *Client) Login(ctx context.Context, emailOrTag, password string) (*LoginResponse, error) {
	body := map[string]string{"password": password}
	if strings.Contains(emailOrTag, ":") {
		body["usernameAndTag"] = emailOrTag
	} else {
		body["email"] = emailOrTag
	}
	var out LoginResponse
	err := c.do(ctx, requestOpts{
		method: http.MethodPost,
		path:   "/users/login",
		body:   body,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UserDetails is the profile payload of a single user.
type UserDetails struct {
	User            store.RawUser `json:"user"`
	MutualFriendIDs []string      `json:"mutualFriendIds"`
	MutualServerIDs []string      `json:"mutualServerIds"`
}

// FetchUser loads a user's profile.
func (c *Client) FetchUser(ctx context.Context, userID string) (*UserDetails, error) {
	var out UserDetails
	err := c.do(ctx, requestOpts{
		method:   http.MethodGet,
		path:     "/users/" + userID,
		useToken: true,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePresence pushes the account's presence. custom may be nil to leave
// the custom text untouched.
func (c *Client) UpdatePresence(ctx context.Context, status store.UserStatus, custom *string) error {
	body := map[string]any{"status": int(status)}
	if custom != nil {
		body["custom"] = *custom
	}
	return c.do(ctx, requestOpts{
		method:   http.MethodPost,
		path:     "/users/presence",
		body:     body,
		useToken: true,
	})
}

// UserUpdate is a partial account profile update.
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	Tag      *string `json:"tag,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// UpdateUser patches the account profile and returns the updated snapshot.
func (c *Client) UpdateUser(ctx context.Context, update UserUpdate) (*store.RawUser, error) {
	var out struct {
		User *store.RawUser `json:"user"`
	}
	err := c.do(ctx, requestOpts{
		method:   http.MethodPatch,
		path:     "/users",
		body:     update,
		useToken: true,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return out.User, nil
}

// OpenDMChannel opens (or returns) the DM conversation with a user.
func (c *Client) OpenDMChannel(ctx context.Context, userID string) (*store.RawInboxItem, error) {
	var out store.RawInboxItem
	err := c.do(ctx, requestOpts{
		method:   http.MethodPost,
		path:     "/users/" + userID + "/open-channel",
		useToken: true,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterPushToken registers a device push token for offline delivery.
func (c *Client) RegisterPushToken(ctx context.Context, token string) error {
	return c.do(ctx, requestOpts{
		method:   http.MethodPost,
		path:     "/users/register-fcm",
		body:     map[string]string{"token": token},
		useToken: true,
	})
}
