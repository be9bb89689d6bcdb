package termstream

import "devbridge/cli/internal/statestore"

// Prefs are the persisted display preferences for the stream panel.
type Prefs struct {
	MaxLinesPerTerminal int  `json:"maxLinesPerTerminal"`
	ShowTimestamps      bool `json:"showTimestamps"`
	FollowOutput        bool `json:"followOutput"`
}

func DefaultPrefs() Prefs {
	return Prefs{
		MaxLinesPerTerminal: DefaultMaxLinesPerTerminal,
		FollowOutput:        true,
	}
}

func LoadPrefs(state *statestore.Store) (Prefs, error) {
	prefs := DefaultPrefs()
	found, err := state.LoadJSON(statestore.KeyTerminalPrefs, &prefs)
	if err != nil {
		return DefaultPrefs(), err
	}
	if found && prefs.MaxLinesPerTerminal <= 0 {
		prefs.MaxLinesPerTerminal = DefaultMaxLinesPerTerminal
	}
	return prefs, nil
}

func SavePrefs(state *statestore.Store, prefs Prefs) error {
	return state.SaveJSON(statestore.KeyTerminalPrefs, prefs)
}
