package memory

import "time"

// Session is an ephemeral handle binding a user and conversation to a
// point-in-time snapshot of long-term memory. It is produced by
// Manager.InitializeSession and consumed by the orchestration layer; mutating
// it does not write through to the store.
type Session struct {
	UserID      string                 `json:"user_id"`
	SessionID   string                 `json:"session_id"`
	StartedAt   time.Time              `json:"started_at"`
	Preferences []UserPreference       `json:"preferences"`
	Categories  []CategoryMapping      `json:"categories"`
	Attributes  map[string]interface{} `json:"attributes"`
}

// Context returns the memory context for operations within this session.
func (s *Session) Context() Context {
	return Context{UserID: s.UserID, SessionID: s.SessionID, DefaultScope: ScopeAnalysis}
}

// Snapshot returns a compact map view of the session suitable for embedding
// in orchestration traces.
func (s *Session) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"session_id":       s.SessionID,
		"preference_count": len(s.Preferences),
		"category_count":   len(s.Categories),
		"attribute_count":  len(s.Attributes),
	}
}
