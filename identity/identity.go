package identity

import (
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// State is the small identity record kept across restarts: who this client
// is, which dataset is active, and which session the user was last in.
type State struct {
	ClientID  string `yaml:"client_id"`
	DatasetID string `yaml:"dataset_id,omitempty"`
	SessionID string `yaml:"session_id,omitempty"`
}

// Store persists State to a YAML file. Writes are best-effort: losing the
// file costs a fresh client id and a forgotten active session, nothing more.
type Store struct {
	path   string
	logger *zap.Logger

	mu    sync.Mutex
	state State
}

// NewStore loads the state file at path, minting a client id on first run.
func NewStore(path string, logger *zap.Logger) *Store {
	s := &Store{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &s.state); err != nil {
			logger.Warn("Discarding malformed identity state", zap.String("path", path), zap.Error(err))
			s.state = State{}
		}
	} else if !os.IsNotExist(err) {
		logger.Warn("Could not read identity state", zap.String("path", path), zap.Error(err))
	}

	if s.state.ClientID == "" {
		s.state.ClientID = uuid.NewString()
		logger.Info("Minted new client id", zap.String("client_id", s.state.ClientID))
		s.save()
	}
	return s
}

func (s *Store) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ClientID
}

func (s *Store) DatasetID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DatasetID
}

// SetDatasetID records the active dataset handle.
func (s *Store) SetDatasetID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.DatasetID == id {
		return
	}
	s.state.DatasetID = id
	s.save()
}

func (s *Store) ActiveSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SessionID
}

// SetActiveSession records the shareable session reference so a restart
// resumes the same conversation.
func (s *Store) SetActiveSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.SessionID == id {
		return
	}
	s.state.SessionID = id
	s.save()
}

// save must be called with the mutex held.
func (s *Store) save() {
	data, err := yaml.Marshal(s.state)
	if err != nil {
		s.logger.Warn("Failed to encode identity state", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		s.logger.Warn("Failed to persist identity state", zap.String("path", s.path), zap.Error(err))
	}
}
