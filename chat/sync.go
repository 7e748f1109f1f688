package chat

import (
	"context"
	"sync"

	"datachat/backend"
	"datachat/cache"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the synchronizer's position in its load cycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateHydrated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateHydrated:
		return "hydrated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TranscriptLoader fetches the authoritative session transcript.
type TranscriptLoader interface {
	LoadSession(ctx context.Context, req backend.LoadSessionRequest) (*backend.LoadSessionResponse, error)
}

// ResultCache supplies locally cached rows/columns/chart for transcript
// entries. Lookups are best-effort; a miss degrades to a text-only message.
type ResultCache interface {
	Put(datasetID, sessionID, content, query string, p cache.Payload)
	Get(datasetID, sessionID, content, query string) (cache.Payload, bool)
}

// Synchronizer loads a session transcript and hydrates it against the local
// cache: Idle -> Loading -> {Hydrated, Failed}, re-entered on every explicit
// trigger (session or client change). A single-shot suppression token lets
// the adoption path skip exactly one cycle after the server mints a new
// session id, so the freshly rendered answer is not clobbered by a transcript
// the server has not finished indexing.
type Synchronizer struct {
	loader TranscriptLoader
	cache  ResultCache
	logger *zap.Logger

	mu          sync.Mutex
	state       State
	generation  uint64
	suppressFor string
}

func NewSynchronizer(loader TranscriptLoader, cache ResultCache, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{
		loader: loader,
		cache:  cache,
		logger: logger,
		state:  StateIdle,
	}
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SuppressNext arms the single-shot skip for sessionID. It must be called
// before the tracked session id changes so the next Load observes it.
func (s *Synchronizer) SuppressNext(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppressFor = sessionID
}

// Load runs one hydration cycle for the given identifiers. It returns the
// hydrated messages, the session name when the server supplied one, and
// whether the result should be applied. apply is false when the cycle was
// suppressed (adoption skip) or superseded by a newer trigger; the caller
// must leave its current message list untouched in both cases, and on error.
func (s *Synchronizer) Load(ctx context.Context, sessionID, clientID, datasetID string) (msgs []Message, name string, apply bool, err error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state = StateLoading

	// The token is single-shot: any load attempt consumes it, whether or
	// not it matches.
	suppressed := s.suppressFor != "" && s.suppressFor == sessionID
	s.suppressFor = ""
	if suppressed {
		// The in-memory list already holds the answer that produced this
		// session id.
		s.state = StateHydrated
		s.mu.Unlock()
		s.logger.Debug("Skipping hydration for freshly adopted session",
			zap.String("session_id", sessionID))
		return nil, "", false, nil
	}
	s.mu.Unlock()

	resp, err := s.loader.LoadSession(ctx, backend.LoadSessionRequest{
		SessionID: sessionID,
		ClientID:  clientID,
		DatasetID: datasetID,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		// A newer trigger superseded this load; discard the stale result.
		s.logger.Debug("Discarding stale hydration result", zap.String("session_id", sessionID))
		return nil, "", false, nil
	}

	if err != nil {
		s.state = StateFailed
		s.logger.Warn("Failed to load session transcript",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, "", false, err
	}

	msgs = s.hydrate(resp.Messages, sessionID, datasetID)
	if resp.Session != nil {
		name = resp.Session.Name
	}
	s.state = StateHydrated
	return msgs, name, true, nil
}

// hydrate merges transcript entries with cached payloads. Transcript order is
// message order; timestamps are display-only. Among bot entries only the last
// stays expanded regardless of any prior collapse state.
func (s *Synchronizer) hydrate(entries []backend.TranscriptEntry, sessionID, datasetID string) []Message {
	msgs := make([]Message, 0, len(entries))
	lastBot := -1
	for _, entry := range entries {
		msg := Message{
			ID:        uuid.NewString(),
			Sender:    mapRole(entry.Role),
			Timestamp: displayTimestamp(entry.Timestamp),
			Content:   entry.Content,
			Query:     entry.Query,
		}
		if msg.Sender == SenderBot {
			if p, ok := s.cache.Get(datasetID, sessionID, entry.Content, entry.Query); ok {
				msg.Rows = p.Rows
				msg.Columns = p.Columns
				msg.ChartSpec = p.Chart
			}
			lastBot = len(msgs)
		}
		msgs = append(msgs, msg)
	}

	for i := range msgs {
		if msgs[i].Sender == SenderBot && i != lastBot {
			msgs[i].Collapsed = true
		}
	}
	return msgs
}

// mapRole maps a transcript role onto a message sender. Anything that is not
// the user speaks for the bot.
func mapRole(role string) string {
	if role == "user" {
		return SenderUser
	}
	return SenderBot
}
