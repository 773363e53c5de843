// Package memory maintains an agent's contextual memory across sessions:
// scoped reads and writes over a persistent store, session lifecycle,
// conversation history with a sliding window, and incremental learning from
// successful tool executions.
package memory

import (
	"encoding/json"
	"time"
)

// Scope names a partition of a user's memory with its own persistence policy.
// Session entries carry a TTL and expire in the backing store; the other
// scopes persist until overwritten or deleted.
type Scope string

const (
	ScopeSession      Scope = "session"
	ScopePreferences  Scope = "preferences"
	ScopeCategories   Scope = "categories"
	ScopeConversation Scope = "conversation"
	ScopeAnalysis     Scope = "analysis"
)

// scopeSearchOrder fixes the cross-scope lookup order for RetrieveMemory.
// Keys are not supposed to exist in two scopes at once; the fixed order keeps
// lookups deterministic if that convention is ever violated.
var scopeSearchOrder = []Scope{
	ScopeSession,
	ScopePreferences,
	ScopeCategories,
	ScopeConversation,
	ScopeAnalysis,
}

func (s Scope) Valid() bool {
	switch s {
	case ScopeSession, ScopePreferences, ScopeCategories, ScopeConversation, ScopeAnalysis:
		return true
	}
	return false
}

// Metadata describes the provenance and trustworthiness of a memory entry.
type Metadata struct {
	Source      string    `json:"source"`
	Confidence  float64   `json:"confidence"`
	LastUpdated time.Time `json:"last_updated"`
	Tags        []string  `json:"tags,omitempty"`
}

// MemoryEntry is the canonical form every stored record is converted to on
// read, regardless of how the raw value was written.
type MemoryEntry struct {
	Key      string      `json:"key"`
	Value    interface{} `json:"value"`
	Metadata Metadata    `json:"metadata"`
}

// UserPreference is a long-lived preference record. Inserting with an
// existing ID replaces the prior entry wholesale; there is no merging.
type UserPreference struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Value      interface{} `json:"value"`
	Confidence float64     `json:"confidence"`
	Source     string      `json:"source"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// CategoryMapping maps a transaction-description pattern to a category.
type CategoryMapping struct {
	ID          string    `json:"id"`
	Pattern     string    `json:"pattern"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Confidence  float64   `json:"confidence"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TurnType classifies conversation turns.
type TurnType string

const (
	TurnUserInput     TurnType = "user_input"
	TurnAgentResponse TurnType = "agent_response"
	TurnToolExecution TurnType = "tool_execution"
	TurnMemoryEntry   TurnType = "memory_entry"
)

// ConversationTurn is an immutable, append-only history record. Turn IDs sort
// chronologically so the oldest entries of the sliding window can be evicted
// without consulting payloads.
type ConversationTurn struct {
	ID        string      `json:"id"`
	Type      TurnType    `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Content   interface{} `json:"content"`
	SessionID string      `json:"session_id"`
	Source    string      `json:"source"`
}

// ToolExecution is the record a tool boundary hands to the memory layer after
// one call. Input and Output are opaque; no schema validation happens here.
type ToolExecution struct {
	ToolName        string      `json:"tool_name"`
	Input           interface{} `json:"input"`
	Output          interface{} `json:"output"`
	ExecutionTimeMS int64       `json:"execution_time_ms"`
	Success         bool        `json:"success"`
	Reasoning       string      `json:"reasoning,omitempty"`
}

// InteractionType dispatches explicit user feedback into preferences.
type InteractionType string

const (
	InteractionCategoryCorrection     InteractionType = "category_correction"
	InteractionRecommendationFeedback InteractionType = "recommendation_feedback"
	InteractionGoalUpdate             InteractionType = "goal_update"
)

// Interaction carries one piece of user feedback. Data is interpreted per
// type (e.g. pattern/category for corrections).
type Interaction struct {
	Type InteractionType        `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Context identifies the tenant a memory operation acts for.
type Context struct {
	UserID       string
	SessionID    string
	DefaultScope Scope
}

// StoreRequest is an explicit, scope-tagged write. An empty Scope falls back
// to the context's default scope. Type only applies to preference writes and
// may be left empty.
type StoreRequest struct {
	Scope    Scope
	Key      string
	Type     string
	Value    interface{}
	Metadata *Metadata
}

// Summary is the fan-out read across all scopes for one user/session.
type Summary struct {
	SessionAttributes map[string]interface{} `json:"session_attributes"`
	Preferences       []UserPreference       `json:"preferences"`
	Categories        []CategoryMapping      `json:"categories"`
	RecentTurns       []ConversationTurn     `json:"recent_turns"`
	LastAnalysisAt    *time.Time             `json:"last_analysis_at,omitempty"`
}

// remarshal converts between JSON-shaped values (maps from the store) and
// typed records.
func remarshal(in interface{}, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
