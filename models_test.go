package scatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMessage_Defaults(t *testing.T) {
	msg, err := parseMessage([]byte(`{
		"id": "m1",
		"channel_id": "c1",
		"content": "hello",
		"author": {"id": "u1", "username": "alice"},
		"attachments": [{"id": "a1", "filename": "cat.png", "url": "https://cdn/cat.png"}],
		"embeds": [{"id": "e1", "url": "https://example.com"}]
	}`))
	require.NoError(t, err)

	require.Equal(t, "m1", msg.ID)
	require.Equal(t, "hello", msg.Content)

	// Optional fields fall back to their defaults.
	require.Equal(t, "offline", msg.Author.Presence)
	require.Equal(t, "free", msg.Author.SubscriptionTier)
	require.Equal(t, "cat.png", msg.Attachments[0].OriginalFilename)
	require.Equal(t, "link", msg.Embeds[0].EmbedType)
	require.Nil(t, msg.CreatedAt)
}

func TestParseMessage_MissingID(t *testing.T) {
	_, err := parseMessage([]byte(`{"channel_id": "c1", "content": "hello"}`))
	require.Error(t, err)
}

func TestParseMessage_Timestamps(t *testing.T) {
	msg, err := parseMessage([]byte(`{
		"id": "m1",
		"created_at": "2026-08-01T12:30:00Z"
	}`))
	require.NoError(t, err)
	require.NotNil(t, msg.CreatedAt)
	require.Equal(t, 2026, msg.CreatedAt.Year())
	require.Nil(t, msg.EditedAt)
}

func TestParseUser_Defaults(t *testing.T) {
	u, err := parseUser([]byte(`{"id": "u1"}`))
	require.NoError(t, err)
	require.Equal(t, "offline", u.Presence)
	require.Equal(t, "free", u.SubscriptionTier)
	require.False(t, u.IsAdmin)
}

func TestParseChannel_Defaults(t *testing.T) {
	c, err := parseChannel([]byte(`{"id": "c1", "name": "general"}`))
	require.NoError(t, err)
	require.Equal(t, "text", c.ChannelType)

	c, err = parseChannel([]byte(`{"id": "c2", "name": "lobby", "channel_type": "voice"}`))
	require.NoError(t, err)
	require.Equal(t, "voice", c.ChannelType)
}

func TestParseSpace_SubResources(t *testing.T) {
	s, err := parseSpace([]byte(`{
		"id": "s1",
		"name": "My Space",
		"channels": [{"id": "c1", "name": "general"}],
		"members": [{"id": "u1"}]
	}`))
	require.NoError(t, err)
	require.Len(t, s.Channels, 1)
	require.Equal(t, "text", s.Channels[0].ChannelType)
	require.Equal(t, "offline", s.Members[0].Presence)
	require.Nil(t, s.Roles)
}

func TestParseInvite_CreatedByShapes(t *testing.T) {
	// created_by as a bare ID
	inv, err := parseInvite([]byte(`{"id": "i1", "code": "abc", "created_by": "u1"}`))
	require.NoError(t, err)
	require.Equal(t, "u1", inv.CreatedBy)

	// created_by as an expanded user object
	inv, err = parseInvite([]byte(`{"id": "i2", "code": "def", "created_by": {"id": "u2", "username": "bob"}}`))
	require.NoError(t, err)
	require.Equal(t, "u2", inv.CreatedBy)
}

func TestParseList(t *testing.T) {
	channels, err := parseList([]byte(`[
		{"id": "c1", "name": "general"},
		{"id": "c2", "name": "random"}
	]`), parseChannel)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	require.Equal(t, "c2", channels[1].ID)
}

func TestParseList_PropagatesItemError(t *testing.T) {
	_, err := parseList([]byte(`[{"id": "c1", "name": "ok"}, {"name": "no id"}]`), parseChannel)
	require.Error(t, err)
}
