package scatter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// RESTClient is the low-level REST API surface. Methods return the raw
// response body; Client wraps the common ones with model parsing. Failures
// are categorized by status: *NotFoundError, *ForbiddenError, or *HTTPError.
// Nothing here retries.
type RESTClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func newRESTClient(token, baseURL string, httpClient *http.Client, logger *slog.Logger) *RESTClient {
	return &RESTClient{
		token:      token,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Request performs one REST call and returns the raw response body.
// A nil body and query are allowed; 204 responses return nil data.
func (r *RESTClient) Request(ctx context.Context, method, path string, body any, query url.Values) (json.RawMessage, error) {
	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("scatter: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	r.logger.Debug("rest request", "method", method, "url", u)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, data)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// --- Spaces ---

func (r *RESTClient) GetSpaces(ctx context.Context) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodGet, "/spaces/me", nil, nil)
}

func (r *RESTClient) GetSpace(ctx context.Context, spaceID string) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodGet, "/spaces/"+spaceID, nil, nil)
}

// --- Members ---

func (r *RESTClient) GetMembers(ctx context.Context, spaceID string) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodGet, "/spaces/"+spaceID+"/members", nil, nil)
}

func (r *RESTClient) SetMemberRoles(ctx context.Context, spaceID, userID string, roleIDs []string) error {
	_, err := r.Request(ctx, http.MethodPut,
		"/spaces/"+spaceID+"/members/"+userID+"/roles",
		map[string]any{"role_ids": roleIDs}, nil)
	return err
}

func (r *RESTClient) KickMember(ctx context.Context, spaceID, userID string) error {
	_, err := r.Request(ctx, http.MethodDelete,
		"/spaces/"+spaceID+"/members/"+userID, nil, nil)
	return err
}

// --- Channels ---

func (r *RESTClient) GetChannels(ctx context.Context, spaceID string) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodGet, "/spaces/"+spaceID+"/channels", nil, nil)
}

// CreateChannelOptions holds the optional fields for CreateChannel.
type CreateChannelOptions struct {
	Topic       string
	CategoryID  string
	ChannelType string // defaults to "text"
}

func (r *RESTClient) CreateChannel(ctx context.Context, spaceID, name string, opts *CreateChannelOptions) (json.RawMessage, error) {
	body := map[string]any{"name": name, "channel_type": "text"}
	if opts != nil {
		if opts.ChannelType != "" {
			body["channel_type"] = opts.ChannelType
		}
		if opts.Topic != "" {
			body["topic"] = opts.Topic
		}
		if opts.CategoryID != "" {
			body["category_id"] = opts.CategoryID
		}
	}
	return r.Request(ctx, http.MethodPost, "/spaces/"+spaceID+"/channels", body, nil)
}

// UpdateChannel patches arbitrary channel fields.
func (r *RESTClient) UpdateChannel(ctx context.Context, spaceID, channelID string, fields map[string]any) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodPatch,
		"/spaces/"+spaceID+"/channels/"+channelID, fields, nil)
}

func (r *RESTClient) DeleteChannel(ctx context.Context, spaceID, channelID string) error {
	_, err := r.Request(ctx, http.MethodDelete,
		"/spaces/"+spaceID+"/channels/"+channelID, nil, nil)
	return err
}

// --- Messages ---

// MessageHistoryOptions pages through channel history.
type MessageHistoryOptions struct {
	Before string // message ID to page backwards from
	Limit  int
}

func (r *RESTClient) GetMessages(ctx context.Context, spaceID, channelID string, opts *MessageHistoryOptions) (json.RawMessage, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Before != "" {
			query.Set("before", opts.Before)
		}
		if opts.Limit > 0 {
			query.Set("limit", strconv.Itoa(opts.Limit))
		}
	}
	return r.Request(ctx, http.MethodGet,
		"/spaces/"+spaceID+"/channels/"+channelID+"/messages", nil, query)
}

// SendMessageOptions holds the optional fields for SendMessage.
type SendMessageOptions struct {
	ReplyTo       string
	AttachmentIDs []string
}

func (r *RESTClient) SendMessage(ctx context.Context, spaceID, channelID, content string, opts *SendMessageOptions) (json.RawMessage, error) {
	body := map[string]any{"content": content}
	if opts != nil {
		if opts.ReplyTo != "" {
			body["reply_to"] = opts.ReplyTo
		}
		if len(opts.AttachmentIDs) > 0 {
			body["attachment_ids"] = opts.AttachmentIDs
		}
	}
	return r.Request(ctx, http.MethodPost,
		"/spaces/"+spaceID+"/channels/"+channelID+"/messages", body, nil)
}

func (r *RESTClient) EditMessage(ctx context.Context, spaceID, channelID, messageID, content string) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodPatch,
		"/spaces/"+spaceID+"/channels/"+channelID+"/messages/"+messageID,
		map[string]any{"content": content}, nil)
}

func (r *RESTClient) DeleteMessage(ctx context.Context, spaceID, channelID, messageID string) error {
	_, err := r.Request(ctx, http.MethodDelete,
		"/spaces/"+spaceID+"/channels/"+channelID+"/messages/"+messageID, nil, nil)
	return err
}

// --- Reactions ---

func (r *RESTClient) AddReaction(ctx context.Context, spaceID, channelID, messageID, emoji string) error {
	_, err := r.Request(ctx, http.MethodPut,
		"/spaces/"+spaceID+"/channels/"+channelID+"/messages/"+messageID+
			"/reactions/"+url.PathEscape(emoji), nil, nil)
	return err
}

func (r *RESTClient) RemoveReaction(ctx context.Context, spaceID, channelID, messageID, emoji string) error {
	_, err := r.Request(ctx, http.MethodDelete,
		"/spaces/"+spaceID+"/channels/"+channelID+"/messages/"+messageID+
			"/reactions/"+url.PathEscape(emoji), nil, nil)
	return err
}

// --- Pins ---

func (r *RESTClient) GetPins(ctx context.Context, spaceID, channelID string) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodGet,
		"/spaces/"+spaceID+"/channels/"+channelID+"/pins", nil, nil)
}

func (r *RESTClient) PinMessage(ctx context.Context, spaceID, channelID, messageID string) error {
	_, err := r.Request(ctx, http.MethodPut,
		"/spaces/"+spaceID+"/channels/"+channelID+"/pins/"+messageID, nil, nil)
	return err
}

func (r *RESTClient) UnpinMessage(ctx context.Context, spaceID, channelID, messageID string) error {
	_, err := r.Request(ctx, http.MethodDelete,
		"/spaces/"+spaceID+"/channels/"+channelID+"/pins/"+messageID, nil, nil)
	return err
}

// --- Roles ---

func (r *RESTClient) GetRoles(ctx context.Context, spaceID string) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodGet, "/spaces/"+spaceID+"/roles", nil, nil)
}

// CreateRoleOptions holds the optional fields for CreateRole.
type CreateRoleOptions struct {
	Color *int
	Hoist *bool
}

func (r *RESTClient) CreateRole(ctx context.Context, spaceID, name string, opts *CreateRoleOptions) (json.RawMessage, error) {
	body := map[string]any{"name": name}
	if opts != nil {
		if opts.Color != nil {
			body["color"] = *opts.Color
		}
		if opts.Hoist != nil {
			body["hoist"] = *opts.Hoist
		}
	}
	return r.Request(ctx, http.MethodPost, "/spaces/"+spaceID+"/roles", body, nil)
}

func (r *RESTClient) UpdateRole(ctx context.Context, spaceID, roleID string, fields map[string]any) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodPatch,
		"/spaces/"+spaceID+"/roles/"+roleID, fields, nil)
}

func (r *RESTClient) DeleteRole(ctx context.Context, spaceID, roleID string) error {
	_, err := r.Request(ctx, http.MethodDelete,
		"/spaces/"+spaceID+"/roles/"+roleID, nil, nil)
	return err
}

// --- Invites ---

// CreateInviteOptions holds the optional fields for CreateInvite.
type CreateInviteOptions struct {
	MaxUses          *int
	ExpiresInSeconds *int
}

func (r *RESTClient) CreateInvite(ctx context.Context, spaceID string, opts *CreateInviteOptions) (json.RawMessage, error) {
	body := map[string]any{}
	if opts != nil {
		if opts.MaxUses != nil {
			body["max_uses"] = *opts.MaxUses
		}
		if opts.ExpiresInSeconds != nil {
			body["expires_in_seconds"] = *opts.ExpiresInSeconds
		}
	}
	return r.Request(ctx, http.MethodPost, "/spaces/"+spaceID+"/invites", body, nil)
}

func (r *RESTClient) GetInvites(ctx context.Context, spaceID string) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodGet, "/spaces/"+spaceID+"/invites", nil, nil)
}

// --- Categories ---

func (r *RESTClient) GetCategories(ctx context.Context, spaceID string) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodGet, "/spaces/"+spaceID+"/categories", nil, nil)
}

// --- Emojis ---

func (r *RESTClient) GetEmojis(ctx context.Context, spaceID string) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodGet, "/spaces/"+spaceID+"/emojis", nil, nil)
}

// --- File uploads ---

// UploadFile uploads a file attachment as multipart/form-data and returns
// the raw attachment record.
func (r *RESTClient) UploadFile(ctx context.Context, spaceID, channelID, path string) (json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	u := r.baseURL + "/spaces/" + spaceID + "/channels/" + channelID + "/attachments"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, data)
	}
	return json.RawMessage(data), nil
}
