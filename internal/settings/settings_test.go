package settings

import (
	"fmt"
	"testing"
	"time"

	"devbridge/cli/internal/db"
	"devbridge/cli/internal/statestore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:set_mem_%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.OpenSQLiteDSN(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	state, err := statestore.NewStore(gdb)
	if err != nil {
		t.Fatalf("state store: %v", err)
	}
	return NewStore(state)
}

func TestLoadAI_DefaultsWhenUnset(t *testing.T) {
	s := newTestStore(t)
	ai, err := s.LoadAI()
	if err != nil {
		t.Fatalf("LoadAI: %v", err)
	}
	if ai.Provider != "openai" || ai.Model == "" {
		t.Fatalf("unexpected defaults: %+v", ai)
	}
}

func TestSaveLoadAI_RoundTripWithNormalization(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveAI(AISettings{Provider: "  Mistral ", Model: " mistral-large ", Temperature: -1}); err != nil {
		t.Fatalf("SaveAI: %v", err)
	}
	ai, err := s.LoadAI()
	if err != nil {
		t.Fatalf("LoadAI: %v", err)
	}
	if ai.Provider != "mistral" || ai.Model != "mistral-large" || ai.Temperature != 0 {
		t.Fatalf("normalization missing: %+v", ai)
	}
}

func TestGitHub_DefaultBranchBackfilled(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveGitHub(GitHubSettings{Owner: "acme", Repo: "console", DefaultBranch: " "}); err != nil {
		t.Fatalf("SaveGitHub: %v", err)
	}
	gh, err := s.LoadGitHub()
	if err != nil {
		t.Fatalf("LoadGitHub: %v", err)
	}
	if gh.DefaultBranch != "main" || gh.Owner != "acme" {
		t.Fatalf("unexpected: %+v", gh)
	}
}

func TestLiveKit_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := LiveKitSettings{ServerURL: "wss://lk.example", APIKey: "k", APISecret: "s", DefaultRoom: "standup"}
	if err := s.SaveLiveKit(in); err != nil {
		t.Fatalf("SaveLiveKit: %v", err)
	}
	lk, err := s.LoadLiveKit()
	if err != nil {
		t.Fatalf("LoadLiveKit: %v", err)
	}
	if lk != in {
		t.Fatalf("round trip mismatch: %+v", lk)
	}
}
