package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"datachat/backend"
	apperrors "datachat/errors"

	"go.uber.org/zap"
)

type fakeIdentity struct {
	clientID  string
	datasetID string
	sessionID string
}

func (f *fakeIdentity) ClientID() string         { return f.clientID }
func (f *fakeIdentity) DatasetID() string        { return f.datasetID }
func (f *fakeIdentity) SetDatasetID(id string)   { f.datasetID = id }
func (f *fakeIdentity) ActiveSession() string    { return f.sessionID }
func (f *fakeIdentity) SetActiveSession(id string) {
	f.sessionID = id
}

type fakeAnswerClient struct {
	askResp   *backend.AskResponse
	askErr    error
	askCalls  int
	lastAsk   backend.AskRequest
	blockAsk  chan struct{}
	createID  string
	listResp  []backend.SessionInfo
	listCalls int
}

func (f *fakeAnswerClient) Ask(ctx context.Context, req backend.AskRequest) (*backend.AskResponse, error) {
	f.askCalls++
	f.lastAsk = req
	if f.blockAsk != nil {
		<-f.blockAsk
	}
	return f.askResp, f.askErr
}

func (f *fakeAnswerClient) CreateSession(ctx context.Context, req backend.CreateSessionRequest) (*backend.CreateSessionResponse, error) {
	resp := &backend.CreateSessionResponse{}
	resp.Session.SessionID = f.createID
	return resp, nil
}

func (f *fakeAnswerClient) ListSessions(ctx context.Context, req backend.ListSessionsRequest) (*backend.ListSessionsResponse, error) {
	f.listCalls++
	return &backend.ListSessionsResponse{Sessions: f.listResp}, nil
}

func newTestController(client *fakeAnswerClient, loader *fakeLoader, store *fakeCache, ids *fakeIdentity) *Controller {
	logger, _ := zap.NewDevelopment()
	s := NewSynchronizer(loader, store, logger)
	return NewController(client, s, store, ids, 10, logger)
}

func TestAskAdoptionSkipsOneHydration(t *testing.T) {
	client := &fakeAnswerClient{askResp: &backend.AskResponse{
		Summary:   "Found 3 rows.",
		Query:     "SELECT * FROM t",
		SessionID: "S1",
		Result:    backend.AskResult{Rows: json.RawMessage(`[{"a":1}]`)},
	}}
	loader := &fakeLoader{resp: &backend.LoadSessionResponse{}}
	store := newFakeCache()
	ids := &fakeIdentity{clientID: "c1", datasetID: "ds1"}
	ctl := newTestController(client, loader, store, ids)

	bot, err := ctl.Ask(context.Background(), "how many rows?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if bot.Content != "Found 3 rows." {
		t.Errorf("Ask() bot content = %q", bot.Content)
	}

	// The adoption armed the skip, so the post-adoption hydration cycle
	// must not contact the server or disturb the list.
	if loader.calls != 0 {
		t.Errorf("post-adoption hydration fetched %d times, want 0", loader.calls)
	}
	view := ctl.Snapshot()
	if view.SessionID != "S1" {
		t.Errorf("Snapshot() session id = %q, want S1", view.SessionID)
	}
	if ids.sessionID != "S1" {
		t.Errorf("identity session id = %q, want S1", ids.sessionID)
	}
	if len(view.Messages) != 2 {
		t.Fatalf("Snapshot() message count = %d, want 2", len(view.Messages))
	}
	if view.Messages[1].Sender != SenderBot || len(view.Messages[1].Rows) != 1 {
		t.Errorf("bot message lost its rows across adoption: %+v", view.Messages[1])
	}

	// An independent navigation to another session runs the full path.
	if err := ctl.ActivateSession(context.Background(), "S2"); err != nil {
		t.Fatalf("ActivateSession() error = %v", err)
	}
	if loader.calls != 1 {
		t.Errorf("ActivateSession() fetched %d times, want 1", loader.calls)
	}
}

func TestAskCachesAnswerUnderAdoptedSession(t *testing.T) {
	client := &fakeAnswerClient{askResp: &backend.AskResponse{
		Summary:   "Found 3 rows.",
		Query:     "SELECT * FROM t",
		SessionID: "S1",
		Result:    backend.AskResult{Rows: json.RawMessage(`[{"a":1}]`)},
	}}
	store := newFakeCache()
	ids := &fakeIdentity{clientID: "c1", datasetID: "ds1"}
	ctl := newTestController(client, &fakeLoader{}, store, ids)

	if _, err := ctl.Ask(context.Background(), "how many rows?"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	// The payload must be addressable under the adopted id, or the next
	// reload would render text only.
	p, ok := store.Get("ds1", "S1", "Found 3 rows.", "SELECT * FROM t")
	if !ok {
		t.Fatal("answer payload not cached under adopted session id")
	}
	if len(p.Rows) != 1 {
		t.Errorf("cached rows = %v, want 1 row", p.Rows)
	}
}

func TestAskRejectsWhileInFlight(t *testing.T) {
	client := &fakeAnswerClient{
		askResp:  &backend.AskResponse{Summary: "ok", SessionID: "S1"},
		blockAsk: make(chan struct{}),
	}
	ids := &fakeIdentity{clientID: "c1", datasetID: "ds1"}
	ctl := newTestController(client, &fakeLoader{}, newFakeCache(), ids)

	done := make(chan error, 1)
	go func() {
		_, err := ctl.Ask(context.Background(), "slow question")
		done <- err
	}()

	// Wait for the first ask to reach the backend.
	deadline := time.After(2 * time.Second)
	for !ctl.Busy() {
		select {
		case <-deadline:
			t.Fatal("controller never became busy")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := ctl.Ask(context.Background(), "second question"); !apperrors.IsRequestInFlight(err) {
		t.Errorf("concurrent Ask() error = %v, want request in flight", err)
	}

	close(client.blockAsk)
	if err := <-done; err != nil {
		t.Fatalf("first Ask() error = %v", err)
	}
	if ctl.Busy() {
		t.Error("controller still busy after answer")
	}
	if client.askCalls != 1 {
		t.Errorf("backend asked %d times, want 1 (no queueing)", client.askCalls)
	}
}

func TestAskWithoutDataset(t *testing.T) {
	ids := &fakeIdentity{clientID: "c1"}
	ctl := newTestController(&fakeAnswerClient{}, &fakeLoader{}, newFakeCache(), ids)

	if _, err := ctl.Ask(context.Background(), "anything"); err != apperrors.ErrNoDataset {
		t.Errorf("Ask() error = %v, want no active dataset", err)
	}
}

func TestAskFailureKeepsConversation(t *testing.T) {
	client := &fakeAnswerClient{askErr: apperrors.ErrTransport}
	ids := &fakeIdentity{clientID: "c1", datasetID: "ds1"}
	ctl := newTestController(client, &fakeLoader{}, newFakeCache(), ids)

	_, err := ctl.Ask(context.Background(), "doomed question")
	if !apperrors.IsTransport(err) {
		t.Fatalf("Ask() error = %v, want transport failure", err)
	}

	// Transient notice only: the optimistic user turn stays, nothing else
	// appears, and the composer re-enables.
	view := ctl.Snapshot()
	if len(view.Messages) != 1 || view.Messages[0].Sender != SenderUser {
		t.Errorf("conversation after failure = %+v, want single user turn", view.Messages)
	}
	if ctl.Busy() {
		t.Error("controller still busy after failed ask")
	}
}

func TestActivateSessionFailureLeavesListUntouched(t *testing.T) {
	client := &fakeAnswerClient{askResp: &backend.AskResponse{Summary: "ok", SessionID: "S1"}}
	loader := &fakeLoader{err: apperrors.ErrTransport}
	ids := &fakeIdentity{clientID: "c1", datasetID: "ds1"}
	ctl := newTestController(client, loader, newFakeCache(), ids)

	if _, err := ctl.Ask(context.Background(), "q"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	before := ctl.Snapshot().Messages

	if err := ctl.ActivateSession(context.Background(), "S2"); err == nil {
		t.Fatal("ActivateSession() error = nil, want failure")
	}

	after := ctl.Snapshot().Messages
	if len(after) != len(before) {
		t.Errorf("failed hydration changed message count: %d -> %d", len(before), len(after))
	}
}

func TestCreateSessionActivates(t *testing.T) {
	client := &fakeAnswerClient{createID: "S9"}
	ids := &fakeIdentity{clientID: "c1", datasetID: "ds1"}
	ctl := newTestController(client, &fakeLoader{}, newFakeCache(), ids)

	notified := false
	ctl.SetRosterListener(func() { notified = true })

	sid, err := ctl.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if sid != "S9" {
		t.Errorf("CreateSession() = %q, want S9", sid)
	}
	if !notified {
		t.Error("roster listener not notified")
	}
	view := ctl.Snapshot()
	if view.SessionID != "S9" || len(view.Messages) != 0 {
		t.Errorf("Snapshot() after create = %+v, want empty S9 conversation", view)
	}
}

func TestSetDatasetResetsConversation(t *testing.T) {
	client := &fakeAnswerClient{askResp: &backend.AskResponse{Summary: "ok", SessionID: "S1"}}
	ids := &fakeIdentity{clientID: "c1", datasetID: "ds1"}
	ctl := newTestController(client, &fakeLoader{}, newFakeCache(), ids)

	if _, err := ctl.Ask(context.Background(), "q"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	ctl.SetDataset("ds2")
	view := ctl.Snapshot()
	if view.SessionID != "" || len(view.Messages) != 0 {
		t.Errorf("dataset switch should reset the conversation, got %+v", view)
	}
	if ids.datasetID != "ds2" || ids.sessionID != "" {
		t.Errorf("identity after dataset switch = %+v", ids)
	}
}
