package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nerimity/nerimity-go/internal/store"
)

// FetchMessages loads a page of channel history, oldest first. The After
// and Before cursors page forwards or backwards from a message id; both
// are omitted from the query when unset.
func (c *Client) FetchMessages(ctx context.Context, channelID string, opts store.FetchMessagesOptions) ([]store.RawMessage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultFetchLimit
	}
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	if opts.After != "" {
		params.Set("after", opts.After)
	}
	if opts.Before != "" {
		params.Set("before", opts.Before)
	}
	var out []store.RawMessage
	err := c.do(ctx, requestOpts{
		method:   http.MethodGet,
		path:     "/channels/" + channelID + "/messages",
		params:   params,
		useToken: true,
		out:      &out,
	})
	return out, err
}

// PostMessage creates a message. socketID tags the request so the sender's
// own realtime echo can be recognized; attachment, when set, switches to a
// multipart upload.
func (c *Client) PostMessage(ctx context.Context, channelID, content, socketID string, attachment *store.FileAttach) (*store.RawMessage, error) {
	var out store.RawMessage
	opts := requestOpts{
		method:   http.MethodPost,
		path:     "/channels/" + channelID + "/messages",
		useToken: true,
		out:      &out,
	}
	if attachment != nil {
		fields := map[string]string{}
		if content != "" {
			fields["content"] = content
		}
		if socketID != "" {
			fields["socketId"] = socketID
		}
		opts.attachment = attachment
		opts.fields = fields
	} else {
		body := map[string]string{"content": content}
		if socketID != "" {
			body["socketId"] = socketID
		}
		opts.body = body
	}
	if err := c.do(ctx, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMessage edits a message's content and returns the updated fields.
func (c *Client) UpdateMessage(ctx context.Context, channelID, messageID, content string) (*store.RawMessage, error) {
	var out struct {
		Updated *store.RawMessage `json:"updated"`
	}
	err := c.do(ctx, requestOpts{
		method:   http.MethodPatch,
		path:     "/channels/" + channelID + "/messages/" + messageID,
		body:     map[string]string{"content": content},
		useToken: true,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return out.Updated, nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, requestOpts{
		method:   http.MethodDelete,
		path:     "/channels/" + channelID + "/messages/" + messageID,
		useToken: true,
	})
}

// AddMessageReaction adds (or joins) an emoji reaction on a message. name
// is the unicode emoji or custom emoji shortname; emojiID is set for
// custom emojis only.
func (c *Client) AddMessageReaction(ctx context.Context, channelID, messageID, name, emojiID string, gif bool) error {
	body := map[string]any{"name": name}
	if emojiID != "" {
		body["emojiId"] = emojiID
	}
	if gif {
		body["gif"] = true
	}
	return c.do(ctx, requestOpts{
		method:   http.MethodPost,
		path:     "/channels/" + channelID + "/messages/" + messageID + "/reactions",
		body:     body,
		useToken: true,
	})
}

// RemoveMessageReaction removes the caller's reaction from a message.
func (c *Client) RemoveMessageReaction(ctx context.Context, channelID, messageID, name, emojiID string) error {
	body := map[string]any{"name": name}
	if emojiID != "" {
		body["emojiId"] = emojiID
	}
	return c.do(ctx, requestOpts{
		method:   http.MethodPost,
		path:     "/channels/" + channelID + "/messages/" + messageID + "/reactions/remove",
		body:     body,
		useToken: true,
	})
}

// PostChannelTyping fires the typing indicator. The endpoint answers with
// a plain text body, which is discarded.
func (c *Client) PostChannelTyping(ctx context.Context, channelID string) error {
	var raw string
	return c.do(ctx, requestOpts{
		method:   http.MethodPost,
		path:     "/channels/" + channelID + "/typing",
		useToken: true,
		rawOut:   &raw,
	})
}
