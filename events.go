package scatter

import (
	"encoding/json"
	"fmt"
)

// EventType identifies a canonical gateway event kind. Handlers and
// listeners are registered against these, never against raw wire kinds.
type EventType string

const (
	EventReady          EventType = "ready"
	EventMessage        EventType = "message"
	EventMessageUpdate  EventType = "message_update"
	EventMessageDelete  EventType = "message_delete"
	EventTyping         EventType = "typing"
	EventReactionAdd    EventType = "reaction_add"
	EventReactionRemove EventType = "reaction_remove"
	EventMemberJoin     EventType = "member_join"
	EventMemberLeave    EventType = "member_leave"
	EventPresenceUpdate EventType = "presence_update"
	EventChannelCreate  EventType = "channel_create"
	EventChannelUpdate  EventType = "channel_update"
	EventChannelDelete  EventType = "channel_delete"
)

// eventKinds maps raw wire kinds to canonical kinds. Frames with a kind not
// in this table are dropped at debug level, which keeps old clients
// compatible with platform events they don't yet understand.
var eventKinds = map[string]EventType{
	"ready":           EventReady,
	"message_create":  EventMessage,
	"message_update":  EventMessageUpdate,
	"message_delete":  EventMessageDelete,
	"typing":          EventTyping,
	"reaction_add":    EventReactionAdd,
	"reaction_remove": EventReactionRemove,
	"member_join":     EventMemberJoin,
	"member_leave":    EventMemberLeave,
	"presence_update": EventPresenceUpdate,
	"channel_create":  EventChannelCreate,
	"channel_update":  EventChannelUpdate,
	"channel_delete":  EventChannelDelete,
}

// Event is a parsed gateway event. Concrete types are ReadyEvent,
// MessageEvent, and the rest below; handlers type-switch on them.
type Event interface {
	EventType() EventType
}

// ReadyEvent signals a successfully authenticated session.
type ReadyEvent struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

func (*ReadyEvent) EventType() EventType { return EventReady }

// MessageEvent carries a newly created message.
type MessageEvent struct {
	Message Message
}

func (*MessageEvent) EventType() EventType { return EventMessage }

// MessageUpdateEvent carries an edited message.
type MessageUpdateEvent struct {
	Message Message
}

func (*MessageUpdateEvent) EventType() EventType { return EventMessageUpdate }

// MessageDeleteEvent signals a deleted message. Only IDs are available.
type MessageDeleteEvent struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	SpaceID   string `json:"space_id"`
}

func (*MessageDeleteEvent) EventType() EventType { return EventMessageDelete }

// TypingEvent signals that a user is typing in a channel.
type TypingEvent struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

func (*TypingEvent) EventType() EventType { return EventTyping }

// ReactionAddEvent signals a reaction added to a message.
type ReactionAddEvent struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

func (*ReactionAddEvent) EventType() EventType { return EventReactionAdd }

// ReactionRemoveEvent signals a reaction removed from a message.
type ReactionRemoveEvent struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

func (*ReactionRemoveEvent) EventType() EventType { return EventReactionRemove }

// MemberJoinEvent signals a member joining a space.
type MemberJoinEvent struct {
	SpaceID string
	Member  Member
}

func (*MemberJoinEvent) EventType() EventType { return EventMemberJoin }

// MemberLeaveEvent signals a member leaving a space.
type MemberLeaveEvent struct {
	SpaceID string `json:"space_id"`
	UserID  string `json:"user_id"`
}

func (*MemberLeaveEvent) EventType() EventType { return EventMemberLeave }

// PresenceUpdateEvent signals a presence or status change.
type PresenceUpdateEvent struct {
	UserID       string `json:"user_id"`
	Presence     string `json:"presence"`
	CustomStatus string `json:"custom_status"`
}

func (*PresenceUpdateEvent) EventType() EventType { return EventPresenceUpdate }

// ChannelCreateEvent carries a newly created channel.
type ChannelCreateEvent struct {
	Channel Channel
}

func (*ChannelCreateEvent) EventType() EventType { return EventChannelCreate }

// ChannelUpdateEvent carries an updated channel.
type ChannelUpdateEvent struct {
	Channel Channel
}

func (*ChannelUpdateEvent) EventType() EventType { return EventChannelUpdate }

// ChannelDeleteEvent signals a deleted channel.
type ChannelDeleteEvent struct {
	ChannelID string `json:"channel_id"`
	SpaceID   string `json:"space_id"`
}

func (*ChannelDeleteEvent) EventType() EventType { return EventChannelDelete }

// parseEvent converts an envelope payload into its typed event. Payloads
// are tolerant of missing optional fields; only the identifying fields of
// the embedded models are required.
func parseEvent(kind EventType, data json.RawMessage) (Event, error) {
	switch kind {
	case EventReady:
		var e ReadyEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return &e, nil

	case EventMessage, EventMessageUpdate:
		m, err := parseMessage(data)
		if err != nil {
			return nil, err
		}
		if kind == EventMessage {
			return &MessageEvent{Message: *m}, nil
		}
		return &MessageUpdateEvent{Message: *m}, nil

	case EventMessageDelete:
		var e MessageDeleteEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		if e.MessageID == "" {
			return nil, missingField("message_delete", "message_id")
		}
		return &e, nil

	case EventTyping:
		var e TypingEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		if e.ChannelID == "" {
			return nil, missingField("typing", "channel_id")
		}
		return &e, nil

	case EventReactionAdd:
		var e ReactionAddEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		if e.MessageID == "" {
			return nil, missingField("reaction", "message_id")
		}
		return &e, nil

	case EventReactionRemove:
		var e ReactionRemoveEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		if e.MessageID == "" {
			return nil, missingField("reaction", "message_id")
		}
		return &e, nil

	case EventMemberJoin:
		m, err := parseMember(data)
		if err != nil {
			return nil, err
		}
		var aux struct {
			SpaceID string `json:"space_id"`
		}
		_ = json.Unmarshal(data, &aux)
		return &MemberJoinEvent{SpaceID: aux.SpaceID, Member: *m}, nil

	case EventMemberLeave:
		var e MemberLeaveEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		if e.UserID == "" {
			return nil, missingField("member_leave", "user_id")
		}
		return &e, nil

	case EventPresenceUpdate:
		var e PresenceUpdateEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		if e.UserID == "" {
			return nil, missingField("presence_update", "user_id")
		}
		return &e, nil

	case EventChannelCreate, EventChannelUpdate:
		c, err := parseChannel(data)
		if err != nil {
			return nil, err
		}
		if kind == EventChannelCreate {
			return &ChannelCreateEvent{Channel: *c}, nil
		}
		return &ChannelUpdateEvent{Channel: *c}, nil

	case EventChannelDelete:
		var e ChannelDeleteEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		if e.ChannelID == "" {
			return nil, missingField("channel_delete", "channel_id")
		}
		return &e, nil
	}

	return nil, fmt.Errorf("scatter: no parser for event kind %q", kind)
}
