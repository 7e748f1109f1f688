package chat

import (
	"context"
	"strings"
	"sync"

	"datachat/backend"
	"datachat/cache"
	apperrors "datachat/errors"

	"go.uber.org/zap"
)

// AnswerClient is the backend surface the controller drives directly. The
// transcript fetch lives on the synchronizer's own loader.
type AnswerClient interface {
	Ask(ctx context.Context, req backend.AskRequest) (*backend.AskResponse, error)
	CreateSession(ctx context.Context, req backend.CreateSessionRequest) (*backend.CreateSessionResponse, error)
	ListSessions(ctx context.Context, req backend.ListSessionsRequest) (*backend.ListSessionsResponse, error)
}

// IdentityStore owns the persisted identity values (client id, active
// dataset, active session reference).
type IdentityStore interface {
	ClientID() string
	DatasetID() string
	SetDatasetID(id string)
	ActiveSession() string
	SetActiveSession(id string)
}

// Controller owns the conversation state. All mutation is serialized behind
// one mutex; at most one question is in flight, and a second submission is
// rejected at the boundary rather than queued.
type Controller struct {
	client        AnswerClient
	sync          *Synchronizer
	cache         ResultCache
	ids           IdentityStore
	historyWindow int
	logger        *zap.Logger

	mu             sync.Mutex
	busy           bool
	sessionID      string
	sessionName    string
	list           *MessageList
	rosterListener func()
}

func NewController(
	client AnswerClient,
	synchronizer *Synchronizer,
	resultCache ResultCache,
	ids IdentityStore,
	historyWindow int,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		client:        client,
		sync:          synchronizer,
		cache:         resultCache,
		ids:           ids,
		historyWindow: historyWindow,
		logger:        logger,
		sessionID:     ids.ActiveSession(),
		list:          NewMessageList(),
	}
}

// SetRosterListener registers the one-way notification fired when the session
// roster changes (a session was minted or pre-created). Listeners refetch the
// roster on their own; nothing is pushed to them.
func (c *Controller) SetRosterListener(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rosterListener = fn
}

// Ask submits a question. The user turn is appended optimistically before the
// round-trip; the answer is normalized, cached and appended as the bot turn.
// A server-minted session id is adopted with a single-shot hydration skip.
func (c *Controller) Ask(ctx context.Context, question string) (Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Message{}, apperrors.ErrInvalidInput
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Message{}, apperrors.ErrRequestInFlight
	}
	datasetID := c.ids.DatasetID()
	if datasetID == "" {
		c.mu.Unlock()
		return Message{}, apperrors.ErrNoDataset
	}
	c.busy = true
	c.list.AppendUser(question)
	req := backend.AskRequest{
		ClientID:  c.ids.ClientID(),
		SessionID: c.sessionID,
		DatasetID: datasetID,
		Question:  question,
		History:   c.list.History(c.historyWindow),
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	resp, err := c.client.Ask(ctx, req)
	if err != nil {
		// Transient notice only; the optimistic user turn stays.
		return Message{}, err
	}

	p := Normalize(resp)

	c.mu.Lock()
	adopted := false
	if resp.SessionID != "" && resp.SessionID != c.sessionID {
		// Arm the skip before the tracked id changes, so the hydration
		// triggered by the change observes it.
		c.sync.SuppressNext(resp.SessionID)
		c.sessionID = resp.SessionID
		c.ids.SetActiveSession(resp.SessionID)
		adopted = true
		c.logger.Info("Adopted server-minted session id", zap.String("session_id", resp.SessionID))
	}
	if resp.SessionName != "" {
		c.sessionName = resp.SessionName
	}
	sessionID := c.sessionID
	c.cache.Put(datasetID, sessionID, p.Content, p.Query, cache.Payload{
		Rows:    p.Rows,
		Columns: p.Columns,
		Chart:   p.ChartSpec,
	})
	bot := c.list.AppendBot(p)
	listener := c.rosterListener
	c.mu.Unlock()

	if adopted {
		if listener != nil {
			listener()
		}
		// The session-id change is itself a hydration trigger; the armed
		// skip makes this cycle a no-op for the in-memory list.
		if err := c.hydrate(ctx); err != nil {
			c.logger.Warn("Post-adoption hydration failed", zap.Error(err))
		}
	}

	return bot, nil
}

// ActivateSession switches the conversation to sessionID and runs a full
// fetch-and-hydrate cycle. On failure the previously displayed messages are
// left untouched.
func (c *Controller) ActivateSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.ErrInvalidInput
	}
	c.mu.Lock()
	c.sessionID = sessionID
	c.ids.SetActiveSession(sessionID)
	c.mu.Unlock()
	return c.hydrate(ctx)
}

// Reload re-hydrates the current session, if any. Used at startup to resume
// the persisted session reference.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID == "" {
		return nil
	}
	return c.hydrate(ctx)
}

func (c *Controller) hydrate(ctx context.Context) error {
	c.mu.Lock()
	sessionID := c.sessionID
	clientID := c.ids.ClientID()
	datasetID := c.ids.DatasetID()
	c.mu.Unlock()

	msgs, name, apply, err := c.sync.Load(ctx, sessionID, clientID, datasetID)
	if err != nil {
		return err
	}
	if !apply {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID != sessionID {
		// Session changed while loading; the synchronizer's generation
		// guard usually catches this, but the tracked id is authoritative.
		return nil
	}
	c.list.Replace(msgs)
	if name != "" {
		c.sessionName = name
	}
	return nil
}

// CreateSession explicitly pre-creates an empty session and makes it active.
func (c *Controller) CreateSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	datasetID := c.ids.DatasetID()
	clientID := c.ids.ClientID()
	c.mu.Unlock()
	if datasetID == "" {
		return "", apperrors.ErrNoDataset
	}

	resp, err := c.client.CreateSession(ctx, backend.CreateSessionRequest{
		ClientID:  clientID,
		DatasetID: datasetID,
	})
	if err != nil {
		return "", err
	}
	sessionID := resp.Session.SessionID
	if sessionID == "" {
		return "", apperrors.ErrBadResponse
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.sessionName = ""
	c.ids.SetActiveSession(sessionID)
	c.list.Replace(nil)
	listener := c.rosterListener
	c.mu.Unlock()

	if listener != nil {
		listener()
	}
	return sessionID, nil
}

// Sessions fetches the roster for the active (client, dataset) pair.
func (c *Controller) Sessions(ctx context.Context) ([]backend.SessionInfo, error) {
	c.mu.Lock()
	clientID := c.ids.ClientID()
	datasetID := c.ids.DatasetID()
	c.mu.Unlock()
	if datasetID == "" {
		return nil, apperrors.ErrNoDataset
	}

	resp, err := c.client.ListSessions(ctx, backend.ListSessionsRequest{
		ClientID:  clientID,
		DatasetID: datasetID,
	})
	if err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// SetDataset switches the active dataset. Sessions are scoped to a (client,
// dataset) pair, so the tracked session and the message list reset.
func (c *Controller) SetDataset(datasetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ids.DatasetID() == datasetID {
		return
	}
	c.ids.SetDatasetID(datasetID)
	c.ids.SetActiveSession("")
	c.sessionID = ""
	c.sessionName = ""
	c.list.Replace(nil)
}

// Toggle flips the collapse state for one message.
func (c *Controller) Toggle(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Toggle(id)
}

// Busy reports whether a question is in flight (the composer is disabled).
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// View is a consistent snapshot of the conversation for rendering.
type View struct {
	SessionID   string    `json:"session_id"`
	SessionName string    `json:"session_name,omitempty"`
	DatasetID   string    `json:"dataset_id,omitempty"`
	State       string    `json:"state"`
	Busy        bool      `json:"busy"`
	Messages    []Message `json:"messages"`
}

// Snapshot returns the current conversation view.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		SessionID:   c.sessionID,
		SessionName: c.sessionName,
		DatasetID:   c.ids.DatasetID(),
		State:       c.sync.State().String(),
		Busy:        c.busy,
		Messages:    c.list.Messages(),
	}
}
