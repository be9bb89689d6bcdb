// Package settings persists the console's per-panel settings blobs.
// Each blob is typed, loaded with defaults applied, and written back
// whole under its fixed storage key.
package settings

import (
	"strings"

	"devbridge/cli/internal/statestore"
)

type AISettings struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	APIKey      string  `json:"apiKey,omitempty"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type GitHubSettings struct {
	Token         string `json:"token,omitempty"`
	Owner         string `json:"owner"`
	Repo          string `json:"repo"`
	DefaultBranch string `json:"defaultBranch"`
}

type LiveKitSettings struct {
	ServerURL   string `json:"serverUrl"`
	APIKey      string `json:"apiKey,omitempty"`
	APISecret   string `json:"apiSecret,omitempty"`
	DefaultRoom string `json:"defaultRoom"`
}

type Store struct {
	state *statestore.Store
}

func NewStore(state *statestore.Store) *Store {
	return &Store{state: state}
}

func defaultAI() AISettings {
	return AISettings{Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.2, MaxTokens: 2048}
}

func defaultGitHub() GitHubSettings {
	return GitHubSettings{DefaultBranch: "main"}
}

func defaultLiveKit() LiveKitSettings {
	return LiveKitSettings{DefaultRoom: "devconsole"}
}

func (s *Store) LoadAI() (AISettings, error) {
	out := defaultAI()
	if _, err := s.state.LoadJSON(statestore.KeyAISettings, &out); err != nil {
		return defaultAI(), err
	}
	return normalizeAI(out), nil
}

func (s *Store) SaveAI(v AISettings) error {
	return s.state.SaveJSON(statestore.KeyAISettings, normalizeAI(v))
}

func (s *Store) LoadGitHub() (GitHubSettings, error) {
	out := defaultGitHub()
	if _, err := s.state.LoadJSON(statestore.KeyGitHubSettings, &out); err != nil {
		return defaultGitHub(), err
	}
	return normalizeGitHub(out), nil
}

func (s *Store) SaveGitHub(v GitHubSettings) error {
	return s.state.SaveJSON(statestore.KeyGitHubSettings, normalizeGitHub(v))
}

func (s *Store) LoadLiveKit() (LiveKitSettings, error) {
	out := defaultLiveKit()
	if _, err := s.state.LoadJSON(statestore.KeyLiveKitSettings, &out); err != nil {
		return defaultLiveKit(), err
	}
	return out, nil
}

func (s *Store) SaveLiveKit(v LiveKitSettings) error {
	return s.state.SaveJSON(statestore.KeyLiveKitSettings, v)
}

func normalizeAI(v AISettings) AISettings {
	v.Provider = strings.ToLower(strings.TrimSpace(v.Provider))
	if v.Provider == "" {
		v.Provider = "openai"
	}
	v.Model = strings.TrimSpace(v.Model)
	if v.Temperature < 0 {
		v.Temperature = 0
	}
	if v.MaxTokens < 0 {
		v.MaxTokens = 0
	}
	return v
}

func normalizeGitHub(v GitHubSettings) GitHubSettings {
	v.Owner = strings.TrimSpace(v.Owner)
	v.Repo = strings.TrimSpace(v.Repo)
	if strings.TrimSpace(v.DefaultBranch) == "" {
		v.DefaultBranch = "main"
	}
	return v
}
