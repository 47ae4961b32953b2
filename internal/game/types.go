package game

// CreateGameRequest represents a request to create a new game. Both
// fields are optional; a game can be configured later via a settings
// patch.
type CreateGameRequest struct {
	Tempo   *int    `json:"tempo"`
	DrumKit *string `json:"drum_kit"`
}

// UpdateSettingsRequest is a partial settings update: present fields
// overwrite, absent fields are left untouched.
type UpdateSettingsRequest struct {
	Tempo   *int    `json:"tempo"`
	DrumKit *string `json:"drum_kit"`
}

// IsEmpty reports whether the patch carries no fields.
func (r UpdateSettingsRequest) IsEmpty() bool {
	return r.Tempo == nil && r.DrumKit == nil
}
