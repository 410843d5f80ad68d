package scatter

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"log/slog"
)

// Client is the main interface for a Scatter bot. It composes the gateway
// session, the event dispatcher, the subscription tracker, the typing
// supervisor, and the REST client into one surface.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	rest       *RESTClient
	session    *session
	dispatcher *dispatcher
	subs       *subscriptionTracker
	typing     *typingSupervisor
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a Client authenticating with the given bot token. The client
// does not connect until Start or Run is called; REST methods work
// immediately.
func New(token string, opts ...ClientOption) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{
		logger: cfg.logger,
		subs:   newSubscriptionTracker(),
	}

	dial := cfg.dial
	if dial == nil {
		gatewayURL := cfg.gatewayURL
		dial = func(ctx context.Context) (Transport, error) {
			return Dial(ctx, gatewayURL, token, &DialOptions{HTTPClient: cfg.httpClient})
		}
	}

	c.dispatcher = newDispatcher(cfg.logger, func(userID string) {
		c.session.setUserID(userID)
	})
	c.session = newSession(token, dial, c.subs, c.dispatcher.dispatch, sessionConfig{
		heartbeatInterval: cfg.heartbeatInterval,
		heartbeatTimeout:  cfg.heartbeatTimeout,
		reconnectInitial:  cfg.reconnectInitial,
		reconnectMax:      cfg.reconnectMax,
		onSend:            cfg.onSend,
		onReceive:         cfg.onReceive,
	}, cfg.logger)
	c.typing = newTypingSupervisor(cfg.typingInterval, c.SendTyping, cfg.logger)
	c.rest = newRESTClient(token, cfg.baseURL, cfg.httpClient, cfg.logger)

	return c
}

// REST returns the low-level REST client.
func (c *Client) REST() *RESTClient {
	return c.rest
}

// State returns the gateway connection state.
func (c *Client) State() ConnState {
	return c.session.State()
}

// UserID returns the bot's own user ID, available once the session has
// authenticated.
func (c *Client) UserID() string {
	return c.session.UserID()
}

// --- Event registration ---

// On installs the primary handler for an event kind, replacing any previous
// one. Handlers run in event arrival order on the dispatch goroutine.
func (c *Client) On(event EventType, fn Handler) {
	c.dispatcher.setHandler(event, fn)
}

// Listen adds an additional listener for an event kind. Unlike On, any
// number of listeners can be registered for the same kind; they run after
// the primary handler, in registration order. The returned Registration
// removes the listener.
func (c *Client) Listen(event EventType, fn Handler) *Registration {
	return c.dispatcher.addListener(event, fn)
}

// --- Connection ---

// Start connects to the gateway and blocks until Close is called or the
// context is cancelled. Transient connection failures are handled
// internally with reconnection; Start does not return for them.
func (c *Client) Start(ctx context.Context) error {
	return c.session.run(ctx)
}

// Run is a blocking convenience that starts the client and shuts it down
// on interrupt.
func (c *Client) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := c.Start(ctx)
	c.Close()
	return err
}

// Close shuts the client down: typing keepalives are cancelled and awaited
// first, then the session with its heartbeat, then the transport. No
// background activity survives Close. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.typing.close()
	c.session.close()
	return nil
}

// --- Subscriptions ---

// SubscribeChannel subscribes to events for a channel (messages, typing,
// reactions). The subscription is tracked so it survives reconnects.
func (c *Client) SubscribeChannel(ctx context.Context, channelID string) error {
	c.subs.trackChannel(channelID)
	return c.session.send(ctx, newSubscribeMessage(channelID))
}

// UnsubscribeChannel unsubscribes from channel events.
func (c *Client) UnsubscribeChannel(ctx context.Context, channelID string) error {
	c.subs.untrackChannel(channelID)
	return c.session.send(ctx, newUnsubscribeMessage(channelID))
}

// SubscribeSpace subscribes to space events (members, roles, channels).
// The subscription is tracked so it survives reconnects.
func (c *Client) SubscribeSpace(ctx context.Context, spaceID string) error {
	c.subs.trackSpace(spaceID)
	return c.session.send(ctx, newSubscribeSpaceMessage(spaceID))
}

// UnsubscribeSpace unsubscribes from space events.
func (c *Client) UnsubscribeSpace(ctx context.Context, spaceID string) error {
	c.subs.untrackSpace(spaceID)
	return c.session.send(ctx, newUnsubscribeSpaceMessage(spaceID))
}

// --- Typing ---

// SendTyping sends a single typing indicator for a channel.
func (c *Client) SendTyping(ctx context.Context, channelID string) error {
	return c.session.send(ctx, newTypingMessage(channelID))
}

// Typing sends a typing indicator immediately and keeps it alive in the
// background until the returned indicator is stopped:
//
//	ti, err := client.Typing(ctx, channelID)
//	if err != nil { ... }
//	defer ti.Stop()
//	reply := slowWork()
//	client.SendMessage(ctx, spaceID, channelID, reply, nil)
func (c *Client) Typing(ctx context.Context, channelID string) (*TypingIndicator, error) {
	return c.typing.start(ctx, channelID)
}

// WithTyping keeps a typing indicator alive while fn runs, stopping it
// before returning even when fn fails.
func (c *Client) WithTyping(ctx context.Context, channelID string, fn func(context.Context) error) error {
	ti, err := c.Typing(ctx, channelID)
	if err != nil {
		return err
	}
	defer ti.Stop()
	return fn(ctx)
}

// --- REST convenience methods ---

// FetchSpaces fetches all spaces the bot is a member of.
func (c *Client) FetchSpaces(ctx context.Context) ([]Space, error) {
	data, err := c.rest.GetSpaces(ctx)
	if err != nil {
		return nil, err
	}
	return parseList(data, parseSpace)
}

// FetchSpace fetches a single space by ID. Sub-resources are not included;
// use FetchChannels, FetchMembers, and friends to load them on demand.
func (c *Client) FetchSpace(ctx context.Context, spaceID string) (*Space, error) {
	data, err := c.rest.GetSpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return parseSpace(data)
}

// FetchChannels fetches all channels in a space.
func (c *Client) FetchChannels(ctx context.Context, spaceID string) ([]Channel, error) {
	data, err := c.rest.GetChannels(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return parseList(data, parseChannel)
}

// FetchMembers fetches all members in a space.
func (c *Client) FetchMembers(ctx context.Context, spaceID string) ([]Member, error) {
	data, err := c.rest.GetMembers(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return parseList(data, parseMember)
}

// FetchRoles fetches all roles in a space.
func (c *Client) FetchRoles(ctx context.Context, spaceID string) ([]Role, error) {
	data, err := c.rest.GetRoles(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return parseList(data, parseRole)
}

// FetchCategories fetches all channel categories in a space.
func (c *Client) FetchCategories(ctx context.Context, spaceID string) ([]ChannelCategory, error) {
	data, err := c.rest.GetCategories(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return parseList(data, parseCategory)
}

// FetchMessages fetches messages from a channel, newest first.
func (c *Client) FetchMessages(ctx context.Context, spaceID, channelID string, opts *MessageHistoryOptions) ([]Message, error) {
	data, err := c.rest.GetMessages(ctx, spaceID, channelID, opts)
	if err != nil {
		return nil, err
	}
	msgs, err := parseList(data, parseMessage)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].SpaceID == "" {
			msgs[i].SpaceID = spaceID
		}
	}
	return msgs, nil
}

// SendMessage sends a message to a channel.
func (c *Client) SendMessage(ctx context.Context, spaceID, channelID, content string, opts *SendMessageOptions) (*Message, error) {
	data, err := c.rest.SendMessage(ctx, spaceID, channelID, content, opts)
	if err != nil {
		return nil, err
	}
	msg, err := parseMessage(data)
	if err != nil {
		return nil, err
	}
	if msg.SpaceID == "" {
		msg.SpaceID = spaceID
	}
	return msg, nil
}

// EditMessage edits a message.
func (c *Client) EditMessage(ctx context.Context, spaceID, channelID, messageID, content string) (*Message, error) {
	data, err := c.rest.EditMessage(ctx, spaceID, channelID, messageID, content)
	if err != nil {
		return nil, err
	}
	msg, err := parseMessage(data)
	if err != nil {
		return nil, err
	}
	if msg.SpaceID == "" {
		msg.SpaceID = spaceID
	}
	return msg, nil
}

// DeleteMessage deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, spaceID, channelID, messageID string) error {
	return c.rest.DeleteMessage(ctx, spaceID, channelID, messageID)
}

// AddReaction adds a reaction to a message.
func (c *Client) AddReaction(ctx context.Context, spaceID, channelID, messageID, emoji string) error {
	return c.rest.AddReaction(ctx, spaceID, channelID, messageID, emoji)
}

// RemoveReaction removes a reaction from a message.
func (c *Client) RemoveReaction(ctx context.Context, spaceID, channelID, messageID, emoji string) error {
	return c.rest.RemoveReaction(ctx, spaceID, channelID, messageID, emoji)
}

// FetchPins fetches the pinned messages in a channel.
func (c *Client) FetchPins(ctx context.Context, spaceID, channelID string) ([]Message, error) {
	data, err := c.rest.GetPins(ctx, spaceID, channelID)
	if err != nil {
		return nil, err
	}
	return parseList(data, parseMessage)
}

// PinMessage pins a message in its channel.
func (c *Client) PinMessage(ctx context.Context, spaceID, channelID, messageID string) error {
	return c.rest.PinMessage(ctx, spaceID, channelID, messageID)
}

// UnpinMessage unpins a message.
func (c *Client) UnpinMessage(ctx context.Context, spaceID, channelID, messageID string) error {
	return c.rest.UnpinMessage(ctx, spaceID, channelID, messageID)
}

// FetchEmojis fetches the custom emojis in a space.
func (c *Client) FetchEmojis(ctx context.Context, spaceID string) ([]CustomEmoji, error) {
	data, err := c.rest.GetEmojis(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return parseList(data, parseEmoji)
}

// FetchInvites fetches the invites for a space.
func (c *Client) FetchInvites(ctx context.Context, spaceID string) ([]Invite, error) {
	data, err := c.rest.GetInvites(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return parseList(data, parseInvite)
}

// CreateInvite creates an invite for a space.
func (c *Client) CreateInvite(ctx context.Context, spaceID string, opts *CreateInviteOptions) (*Invite, error) {
	data, err := c.rest.CreateInvite(ctx, spaceID, opts)
	if err != nil {
		return nil, err
	}
	return parseInvite(data)
}

// CreateChannel creates a channel in a space.
func (c *Client) CreateChannel(ctx context.Context, spaceID, name string, opts *CreateChannelOptions) (*Channel, error) {
	data, err := c.rest.CreateChannel(ctx, spaceID, name, opts)
	if err != nil {
		return nil, err
	}
	return parseChannel(data)
}

// UpdateChannel patches channel fields and returns the updated channel.
func (c *Client) UpdateChannel(ctx context.Context, spaceID, channelID string, fields map[string]any) (*Channel, error) {
	data, err := c.rest.UpdateChannel(ctx, spaceID, channelID, fields)
	if err != nil {
		return nil, err
	}
	return parseChannel(data)
}

// DeleteChannel deletes a channel.
func (c *Client) DeleteChannel(ctx context.Context, spaceID, channelID string) error {
	return c.rest.DeleteChannel(ctx, spaceID, channelID)
}

// CreateRole creates a role in a space.
func (c *Client) CreateRole(ctx context.Context, spaceID, name string, opts *CreateRoleOptions) (*Role, error) {
	data, err := c.rest.CreateRole(ctx, spaceID, name, opts)
	if err != nil {
		return nil, err
	}
	return parseRole(data)
}

// UpdateRole patches role fields and returns the updated role.
func (c *Client) UpdateRole(ctx context.Context, spaceID, roleID string, fields map[string]any) (*Role, error) {
	data, err := c.rest.UpdateRole(ctx, spaceID, roleID, fields)
	if err != nil {
		return nil, err
	}
	return parseRole(data)
}

// DeleteRole deletes a role.
func (c *Client) DeleteRole(ctx context.Context, spaceID, roleID string) error {
	return c.rest.DeleteRole(ctx, spaceID, roleID)
}

// SetMemberRoles replaces a member's role set.
func (c *Client) SetMemberRoles(ctx context.Context, spaceID, userID string, roleIDs []string) error {
	return c.rest.SetMemberRoles(ctx, spaceID, userID, roleIDs)
}

// KickMember removes a member from a space.
func (c *Client) KickMember(ctx context.Context, spaceID, userID string) error {
	return c.rest.KickMember(ctx, spaceID, userID)
}

// UploadAttachment uploads a file and returns the attachment record, whose
// ID can be passed in SendMessageOptions.AttachmentIDs.
func (c *Client) UploadAttachment(ctx context.Context, spaceID, channelID, path string) (*Attachment, error) {
	data, err := c.rest.UploadFile(ctx, spaceID, channelID, path)
	if err != nil {
		return nil, err
	}
	return parseAttachment(data)
}
