package identity

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNewStoreMintsClientID(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	path := filepath.Join(t.TempDir(), "state.yaml")

	s := NewStore(path, logger)
	id := s.ClientID()
	if id == "" {
		t.Fatal("ClientID() empty on first run")
	}

	// The minted id is persisted immediately, so a second load keeps it.
	s2 := NewStore(path, logger)
	if got := s2.ClientID(); got != id {
		t.Errorf("reloaded client id = %q, want %q", got, id)
	}
}

func TestStateRoundTrip(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	path := filepath.Join(t.TempDir(), "state.yaml")

	s := NewStore(path, logger)
	s.SetDatasetID("ds1")
	s.SetActiveSession("S1")

	s2 := NewStore(path, logger)
	if s2.DatasetID() != "ds1" {
		t.Errorf("DatasetID() = %q, want ds1", s2.DatasetID())
	}
	if s2.ActiveSession() != "S1" {
		t.Errorf("ActiveSession() = %q, want S1", s2.ActiveSession())
	}
}

func TestClearingActiveSession(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	path := filepath.Join(t.TempDir(), "state.yaml")

	s := NewStore(path, logger)
	s.SetActiveSession("S1")
	s.SetActiveSession("")

	s2 := NewStore(path, logger)
	if got := s2.ActiveSession(); got != "" {
		t.Errorf("ActiveSession() = %q after clear, want empty", got)
	}
}

func TestMalformedStateFileResets(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, logger)
	if s.ClientID() == "" {
		t.Error("ClientID() empty after recovering from malformed state")
	}
	if s.DatasetID() != "" || s.ActiveSession() != "" {
		t.Error("malformed state should reset to a clean record")
	}
}
