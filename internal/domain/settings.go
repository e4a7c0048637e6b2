package domain

// Settings is the single global configuration bundle: typography, layout
// and AI preferences. Stored settings are merged over DefaultSettings on
// load so fields introduced in a future version default sanely for
// existing saved data.
type Settings struct {
	FontSize   int     `json:"font_size"`
	FontFamily string  `json:"font_family"`
	LineHeight float64 `json:"line_height"`
	MarginPct  int     `json:"margin_pct"`
	Justify    bool    `json:"justify"`
	Theme      string  `json:"theme"`
	Paginated  bool    `json:"paginated"`

	AIModel        string   `json:"ai_model"`
	AINoteMode     NoteMode `json:"ai_note_mode"`
	AIIncludeBook  bool     `json:"ai_include_book"`
	AISystemPrompt string   `json:"ai_system_prompt,omitempty"`
	AIContextUnits int      `json:"ai_context_units"`
}

// DefaultSettings returns the hardcoded defaults every load merges over.
func DefaultSettings() Settings {
	return Settings{
		FontSize:       18,
		FontFamily:     "serif",
		LineHeight:     1.5,
		MarginPct:      8,
		Justify:        true,
		Theme:          "light",
		Paginated:      true,
		AIModel:        "gemini-2.0-flash-001",
		AINoteMode:     NoteAnchored,
		AIIncludeBook:  false,
		AIContextUnits: 5,
	}
}

// SettingsRepository loads and saves the global settings. Load never fails
// hard: a missing or unreadable blob yields the defaults.
type SettingsRepository interface {
	Load() Settings
	Save(s Settings) error
}
