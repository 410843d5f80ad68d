package scatter

import (
	"encoding/json"
	"fmt"
	"time"
)

// User is a platform account.
type User struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	DisplayName      string `json:"display_name"`
	AvatarURL        string `json:"avatar_url"`
	Presence         string `json:"presence"`
	CustomStatus     string `json:"custom_status"`
	SubscriptionTier string `json:"subscription_tier"`
	IsAdmin          bool   `json:"is_admin"`
}

func (u *User) applyDefaults() {
	if u.Presence == "" {
		u.Presence = "offline"
	}
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = "free"
	}
}

// MemberRoleInfo is the role summary attached to a member.
type MemberRoleInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    *int   `json:"color"`
	Position int    `json:"position"`
	Hoist    bool   `json:"hoist"`
}

// Member is a user within a specific space, with role info.
type Member struct {
	ID               string           `json:"id"`
	Username         string           `json:"username"`
	DisplayName      string           `json:"display_name"`
	AvatarURL        string           `json:"avatar_url"`
	Presence         string           `json:"presence"`
	CustomStatus     string           `json:"custom_status"`
	SubscriptionTier string           `json:"subscription_tier"`
	Roles            []MemberRoleInfo `json:"roles"`
	JoinedAt         *time.Time       `json:"joined_at"`
}

func (m *Member) applyDefaults() {
	if m.Presence == "" {
		m.Presence = "offline"
	}
	if m.SubscriptionTier == "" {
		m.SubscriptionTier = "free"
	}
}

// RolePermission is a single permission grant on a role.
type RolePermission struct {
	Permission string `json:"permission"`
	Granted    bool   `json:"granted"`
}

// Role is a space role with its permission set.
type Role struct {
	ID           string           `json:"id"`
	SpaceID      string           `json:"space_id"`
	Name         string           `json:"name"`
	Color        *int             `json:"color"`
	Position     int              `json:"position"`
	InheritsFrom string           `json:"inherits_from"`
	IsDefault    bool             `json:"is_default"`
	Hoist        bool             `json:"hoist"`
	Permissions  []RolePermission `json:"permissions"`
}

// Channel is a sub-container within a space where messages are exchanged.
type Channel struct {
	ID          string `json:"id"`
	SpaceID     string `json:"space_id"`
	Name        string `json:"name"`
	ChannelType string `json:"channel_type"`
	Topic       string `json:"topic"`
	CategoryID  string `json:"category_id"`
	Position    int    `json:"position"`
}

func (c *Channel) applyDefaults() {
	if c.ChannelType == "" {
		c.ChannelType = "text"
	}
}

// ChannelCategory groups channels within a space.
type ChannelCategory struct {
	ID       string `json:"id"`
	SpaceID  string `json:"space_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Attachment is an uploaded file attached to a message.
type Attachment struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	ContentType      string `json:"content_type"`
	SizeBytes        int64  `json:"size_bytes"`
	URL              string `json:"url"`
	Width            *int   `json:"width"`
	Height           *int   `json:"height"`
}

// Embed is a link preview attached to a message.
type Embed struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	EmbedType    string `json:"embed_type"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	SiteName     string `json:"site_name"`
	Color        *int   `json:"color"`
	ImageURL     string `json:"image_url"`
	VideoURL     string `json:"video_url"`
	ProviderName string `json:"provider_name"`
}

// Reaction is an emoji reaction summary on a message.
type Reaction struct {
	Emoji       string `json:"emoji"`
	Count       int    `json:"count"`
	UserReacted bool   `json:"user_reacted"`
}

// Message is a chat message.
type Message struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channel_id"`
	SpaceID     string       `json:"space_id"`
	Content     string       `json:"content"`
	Author      User         `json:"author"`
	CreatedAt   *time.Time   `json:"created_at"`
	EditedAt    *time.Time   `json:"edited_at"`
	ReplyTo     string       `json:"reply_to"`
	PingAuthor  bool         `json:"ping_author"`
	Embeds      []Embed      `json:"embeds"`
	Attachments []Attachment `json:"attachments"`
	Reactions   []Reaction   `json:"reactions"`
}

// CustomEmoji is a space-scoped custom emoji.
type CustomEmoji struct {
	ID         string     `json:"id"`
	SpaceID    string     `json:"space_id"`
	Name       string     `json:"name"`
	ImageURL   string     `json:"image_url"`
	UploadedBy string     `json:"uploaded_by"`
	CreatedAt  *time.Time `json:"created_at"`
}

// Space is a top-level community grouping channels, members, and roles.
// Sub-resource slices are nil unless the API included them.
type Space struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	IconURL      string            `json:"icon_url"`
	OwnerID      string            `json:"owner_id"`
	IsPublic     bool              `json:"is_public"`
	Channels     []Channel         `json:"channels"`
	Members      []Member          `json:"members"`
	Roles        []Role            `json:"roles"`
	Categories   []ChannelCategory `json:"categories"`
	CustomEmojis []CustomEmoji     `json:"custom_emojis"`
}

// Invite is a space invite link.
type Invite struct {
	ID        string     `json:"id"`
	SpaceID   string     `json:"space_id"`
	Code      string     `json:"code"`
	CreatedBy string     `json:"-"`
	MaxUses   *int       `json:"max_uses"`
	UseCount  int        `json:"use_count"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt *time.Time `json:"created_at"`
	URL       string     `json:"url"`
}

// --- Payload parsing ---
//
// Parsers are tolerant of missing optional fields (zero values or the
// defaults above apply) and fail only when the identifying field is absent.

func missingField(what, field string) error {
	return fmt.Errorf("scatter: %s payload missing %q", what, field)
}

func parseUser(data []byte) (*User, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, missingField("user", "id")
	}
	u.applyDefaults()
	return &u, nil
}

func parseMember(data []byte) (*Member, error) {
	var m Member
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.ID == "" {
		return nil, missingField("member", "id")
	}
	m.applyDefaults()
	return &m, nil
}

func parseRole(data []byte) (*Role, error) {
	var r Role
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.ID == "" {
		return nil, missingField("role", "id")
	}
	return &r, nil
}

func parseChannel(data []byte) (*Channel, error) {
	var c Channel
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.ID == "" {
		return nil, missingField("channel", "id")
	}
	c.applyDefaults()
	return &c, nil
}

func parseCategory(data []byte) (*ChannelCategory, error) {
	var c ChannelCategory
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.ID == "" {
		return nil, missingField("category", "id")
	}
	return &c, nil
}

func parseMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.ID == "" {
		return nil, missingField("message", "id")
	}
	m.Author.applyDefaults()
	for i := range m.Embeds {
		if m.Embeds[i].EmbedType == "" {
			m.Embeds[i].EmbedType = "link"
		}
	}
	for i := range m.Attachments {
		if m.Attachments[i].OriginalFilename == "" {
			m.Attachments[i].OriginalFilename = m.Attachments[i].Filename
		}
	}
	return &m, nil
}

func parseAttachment(data []byte) (*Attachment, error) {
	var a Attachment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		return nil, missingField("attachment", "id")
	}
	if a.OriginalFilename == "" {
		a.OriginalFilename = a.Filename
	}
	return &a, nil
}

func parseSpace(data []byte) (*Space, error) {
	var s Space
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, missingField("space", "id")
	}
	for i := range s.Members {
		s.Members[i].applyDefaults()
	}
	for i := range s.Channels {
		s.Channels[i].applyDefaults()
	}
	return &s, nil
}

func parseEmoji(data []byte) (*CustomEmoji, error) {
	var e CustomEmoji
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.ID == "" {
		return nil, missingField("emoji", "id")
	}
	return &e, nil
}

func parseInvite(data []byte) (*Invite, error) {
	var i Invite
	if err := json.Unmarshal(data, &i); err != nil {
		return nil, err
	}
	if i.ID == "" {
		return nil, missingField("invite", "id")
	}
	// created_by may be either a bare ID or an expanded user object.
	var aux struct {
		CreatedBy json.RawMessage `json:"created_by"`
	}
	if err := json.Unmarshal(data, &aux); err == nil && len(aux.CreatedBy) > 0 {
		var id string
		if json.Unmarshal(aux.CreatedBy, &id) == nil {
			i.CreatedBy = id
		} else {
			var u struct {
				ID string `json:"id"`
			}
			if json.Unmarshal(aux.CreatedBy, &u) == nil {
				i.CreatedBy = u.ID
			}
		}
	}
	return &i, nil
}

func parseList[T any](data []byte, parse func([]byte) (*T, error)) ([]T, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		v, err := parse(item)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}
