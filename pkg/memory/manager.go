package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/finagent-io/finagent/pkg/logger"
	"github.com/finagent-io/finagent/pkg/store"
)

// Options tunes manager behavior. Zero values fall back to defaults.
type Options struct {
	SessionTTLDays     int     // expiry for session-scope entries
	ConversationWindow int     // sliding window of turns kept per user
	SummaryTurns       int     // turns included in a memory summary
	LearnMinConfidence float64 // threshold for learned category mappings
}

func (o Options) withDefaults() Options {
	if o.SessionTTLDays <= 0 {
		o.SessionTTLDays = 1
	}
	if o.ConversationWindow <= 0 {
		o.ConversationWindow = 50
	}
	if o.SummaryTurns <= 0 {
		o.SummaryTurns = 10
	}
	if o.LearnMinConfidence <= 0 {
		o.LearnMinConfidence = 0.8
	}
	return o
}

// Manager routes reads and writes across memory scopes and owns the learning
// hook fired on successful tool executions. It holds no per-user state of its
// own; all durable state lives in the injected store.
type Manager struct {
	store   store.Store
	opts    Options
	learner *LearningEngine
}

func NewManager(st store.Store, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		store:   st,
		opts:    opts,
		learner: NewLearningEngine(st, opts.LearnMinConfidence),
	}
}

// Learner exposes the embedded learning engine, mainly for tests.
func (m *Manager) Learner() *LearningEngine { return m.learner }

// InitializeSession loads the user's long-term memory and writes a fresh
// session entry keyed by sessionID. Re-initializing the same session ID
// overwrites the prior session entry.
func (m *Manager) InitializeSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("initialize session: empty user id")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("initialize session: empty session id")
	}

	prefs, err := m.loadPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	cats, err := m.loadCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		UserID:      userID,
		SessionID:   sessionID,
		StartedAt:   time.Now(),
		Preferences: prefs,
		Categories:  cats,
		Attributes:  map[string]interface{}{},
	}

	env := envelope(map[string]interface{}{}, Metadata{Source: "session", Confidence: 1, LastUpdated: sess.StartedAt})
	if err := m.store.Put(ctx, userID, string(ScopeSession), sessionID, env, m.opts.SessionTTLDays); err != nil {
		return nil, fmt.Errorf("write session entry: %w", err)
	}

	logger.DebugCF("memory", "session initialized", map[string]interface{}{
		"user_id":     userID,
		"session_id":  sessionID,
		"preferences": len(prefs),
		"categories":  len(cats),
	})
	return sess, nil
}

// StoreMemory applies scope-specific write semantics: session entries
// shallow-merge into the session attribute map, preferences and categories
// upsert by ID with full replacement, conversation writes synthesize and
// append a turn, everything else is a plain entry write.
func (m *Manager) StoreMemory(ctx context.Context, mctx Context, req StoreRequest) error {
	if strings.TrimSpace(req.Key) == "" {
		return fmt.Errorf("store memory: empty key")
	}
	scope := req.Scope
	if scope == "" {
		scope = mctx.DefaultScope
	}
	if scope == "" {
		scope = ScopeAnalysis
	}
	if !scope.Valid() {
		return fmt.Errorf("store memory: unknown scope %q", scope)
	}

	md := Metadata{Source: "agent", Confidence: 1, LastUpdated: time.Now()}
	if req.Metadata != nil {
		md = *req.Metadata
		if md.LastUpdated.IsZero() {
			md.LastUpdated = time.Now()
		}
	}

	switch scope {
	case ScopeSession:
		return m.mergeSessionAttribute(ctx, mctx, req.Key, req.Value, md)
	case ScopePreferences:
		pref := UserPreference{
			ID:         req.Key,
			Type:       req.Type,
			Value:      req.Value,
			Confidence: md.Confidence,
			Source:     md.Source,
			CreatedAt:  md.LastUpdated,
			UpdatedAt:  md.LastUpdated,
		}
		return m.putPreference(ctx, mctx.UserID, pref)
	case ScopeCategories:
		var mapping CategoryMapping
		if err := remarshal(req.Value, &mapping); err != nil || mapping.Pattern == "" {
			return fmt.Errorf("store memory: category value must be a mapping with a pattern")
		}
		mapping.ID = req.Key
		if mapping.CreatedAt.IsZero() {
			mapping.CreatedAt = md.LastUpdated
		}
		mapping.UpdatedAt = md.LastUpdated
		return m.putCategory(ctx, mctx.UserID, mapping)
	case ScopeConversation:
		turn := ConversationTurn{
			ID:        newTurnID(),
			Type:      TurnMemoryEntry,
			Timestamp: md.LastUpdated,
			Content:   req.Value,
			SessionID: mctx.SessionID,
			Source:    md.Source,
		}
		return m.appendTurn(ctx, mctx.UserID, turn)
	default:
		env := envelope(req.Value, md)
		if err := m.store.Put(ctx, mctx.UserID, string(scope), req.Key, env, 0); err != nil {
			return fmt.Errorf("store memory: %w", err)
		}
		return nil
	}
}

// RetrieveMemory searches all scopes in a fixed order and returns the first
// match, or nil when the key exists nowhere. A key is not supposed to live in
// two scopes at once; the fixed order makes lookups deterministic regardless.
func (m *Manager) RetrieveMemory(ctx context.Context, mctx Context, key string) (*MemoryEntry, error) {
	for _, scope := range scopeSearchOrder {
		raw, ok, err := m.store.Get(ctx, mctx.UserID, string(scope), key)
		if err != nil {
			return nil, fmt.Errorf("retrieve memory: %w", err)
		}
		if !ok {
			continue
		}
		entry := canonicalEntry(raw)
		return &entry, nil
	}
	return nil, nil
}

// GetMemorySummary fans out parallel reads across every scope. Any single
// failing read fails the summary as a whole; there is no partial result.
func (m *Manager) GetMemorySummary(ctx context.Context, mctx Context) (*Summary, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		summary  Summary
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(5)
	go func() {
		defer wg.Done()
		attrs, err := m.sessionAttributes(ctx, mctx)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		summary.SessionAttributes = attrs
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		prefs, err := m.loadPreferences(ctx, mctx.UserID)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		summary.Preferences = prefs
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		cats, err := m.loadCategories(ctx, mctx.UserID)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		summary.Categories = cats
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		turns, err := m.recentTurns(ctx, mctx.UserID, m.opts.SummaryTurns)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		summary.RecentTurns = turns
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		at, err := m.lastAnalysisAt(ctx, mctx.UserID)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		summary.LastAnalysisAt = at
		mu.Unlock()
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("memory summary: %w", firstErr)
	}
	return &summary, nil
}

// RecordToolExecution appends a tool_execution turn and, for successful
// executions, feeds the result to the learning engine.
func (m *Manager) RecordToolExecution(ctx context.Context, mctx Context, exec ToolExecution) error {
	turn := ConversationTurn{
		ID:        newTurnID(),
		Type:      TurnToolExecution,
		Timestamp: time.Now(),
		Content: map[string]interface{}{
			"tool_name":         exec.ToolName,
			"execution_time_ms": exec.ExecutionTimeMS,
			"success":           exec.Success,
			"reasoning":         exec.Reasoning,
		},
		SessionID: mctx.SessionID,
		Source:    exec.ToolName,
	}
	if err := m.appendTurn(ctx, mctx.UserID, turn); err != nil {
		return err
	}

	if exec.Success {
		if err := m.learner.LearnFromExecution(ctx, mctx.UserID, exec); err != nil {
			return fmt.Errorf("learning hook: %w", err)
		}
	}
	return nil
}

// UpdatePreferencesFromInteraction turns explicit user feedback into new
// preference entries. User-sourced corrections get confidence 1.0.
func (m *Manager) UpdatePreferencesFromInteraction(ctx context.Context, userID string, in Interaction) error {
	now := time.Now()
	switch in.Type {
	case InteractionCategoryCorrection:
		pref := UserPreference{
			ID:         "correction_" + shortID(),
			Type:       string(InteractionCategoryCorrection),
			Value:      in.Data,
			Confidence: 1.0,
			Source:     "user",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if pattern, ok := in.Data["pattern"].(string); ok {
			if category, ok := in.Data["category"].(string); ok {
				// A correction also overrides any learned mapping for the pattern.
				if err := m.learner.CorrectMapping(ctx, userID, pattern, category, stringOr(in.Data, "subcategory")); err != nil {
					return err
				}
			}
		}
		return m.putPreference(ctx, userID, pref)
	case InteractionRecommendationFeedback:
		pref := UserPreference{
			ID:         "feedback_" + shortID(),
			Type:       string(InteractionRecommendationFeedback),
			Value:      in.Data,
			Confidence: 0.9,
			Source:     "user",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return m.putPreference(ctx, userID, pref)
	case InteractionGoalUpdate:
		pref := UserPreference{
			ID:         "goal_" + shortID(),
			Type:       string(InteractionGoalUpdate),
			Value:      in.Data,
			Confidence: 1.0,
			Source:     "user",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return m.putPreference(ctx, userID, pref)
	default:
		return fmt.Errorf("unknown interaction type: %s", in.Type)
	}
}

// CleanupExpiredMemory removes expired entries. Session-scope expiry is the
// backing store's responsibility; this triggers its sweep, which reclaims
// dead rows across all users.
func (m *Manager) CleanupExpiredMemory(ctx context.Context) error {
	n, err := m.store.SweepExpired(ctx, 0)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.DebugCF("memory", "swept expired entries", map[string]interface{}{"count": n})
	}
	return nil
}

func (m *Manager) mergeSessionAttribute(ctx context.Context, mctx Context, key string, value interface{}, md Metadata) error {
	if strings.TrimSpace(mctx.SessionID) == "" {
		return fmt.Errorf("store memory: session scope requires a session id")
	}
	attrs, err := m.sessionAttributes(ctx, mctx)
	if err != nil {
		return err
	}
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	attrs[key] = value

	env := envelope(attrs, md)
	if err := m.store.Put(ctx, mctx.UserID, string(ScopeSession), mctx.SessionID, env, m.opts.SessionTTLDays); err != nil {
		return fmt.Errorf("merge session attribute: %w", err)
	}
	return nil
}

func (m *Manager) sessionAttributes(ctx context.Context, mctx Context) (map[string]interface{}, error) {
	if mctx.SessionID == "" {
		return map[string]interface{}{}, nil
	}
	raw, ok, err := m.store.Get(ctx, mctx.UserID, string(ScopeSession), mctx.SessionID)
	if err != nil {
		return nil, fmt.Errorf("read session entry: %w", err)
	}
	if !ok {
		return map[string]interface{}{}, nil
	}
	entry := canonicalEntry(raw)
	attrs, _ := entry.Value.(map[string]interface{})
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	return attrs, nil
}

func (m *Manager) putPreference(ctx context.Context, userID string, pref UserPreference) error {
	env := envelope(pref, Metadata{Source: pref.Source, Confidence: pref.Confidence, LastUpdated: pref.UpdatedAt})
	if err := m.store.Put(ctx, userID, string(ScopePreferences), pref.ID, env, 0); err != nil {
		return fmt.Errorf("put preference: %w", err)
	}
	return nil
}

func (m *Manager) putCategory(ctx context.Context, userID string, mapping CategoryMapping) error {
	env := envelope(mapping, Metadata{Source: mapping.Source, Confidence: mapping.Confidence, LastUpdated: mapping.UpdatedAt})
	if err := m.store.Put(ctx, userID, string(ScopeCategories), mapping.ID, env, 0); err != nil {
		return fmt.Errorf("put category mapping: %w", err)
	}
	return nil
}

func (m *Manager) loadPreferences(ctx context.Context, userID string) ([]UserPreference, error) {
	entries, err := m.store.Scan(ctx, userID, string(ScopePreferences))
	if err != nil {
		return nil, fmt.Errorf("scan preferences: %w", err)
	}
	out := make([]UserPreference, 0, len(entries))
	for _, raw := range entries {
		entry := canonicalEntry(raw)
		var pref UserPreference
		if err := remarshal(entry.Value, &pref); err != nil {
			continue
		}
		if pref.ID == "" {
			pref.ID = entry.Key
		}
		out = append(out, pref)
	}
	return out, nil
}

func (m *Manager) loadCategories(ctx context.Context, userID string) ([]CategoryMapping, error) {
	entries, err := m.store.Scan(ctx, userID, string(ScopeCategories))
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	out := make([]CategoryMapping, 0, len(entries))
	for _, raw := range entries {
		entry := canonicalEntry(raw)
		var mapping CategoryMapping
		if err := remarshal(entry.Value, &mapping); err != nil {
			continue
		}
		if mapping.ID == "" {
			mapping.ID = entry.Key
		}
		out = append(out, mapping)
	}
	return out, nil
}

func (m *Manager) appendTurn(ctx context.Context, userID string, turn ConversationTurn) error {
	env := envelope(turn, Metadata{Source: turn.Source, Confidence: 1, LastUpdated: turn.Timestamp})
	if err := m.store.Put(ctx, userID, string(ScopeConversation), turn.ID, env, 0); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}

	entries, err := m.store.Scan(ctx, userID, string(ScopeConversation))
	if err != nil {
		return fmt.Errorf("scan turns: %w", err)
	}
	if len(entries) <= m.opts.ConversationWindow {
		return nil
	}
	// Turn keys sort chronologically; evict from the front.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	for _, old := range entries[:len(entries)-m.opts.ConversationWindow] {
		if err := m.store.Delete(ctx, userID, string(ScopeConversation), old.Key); err != nil {
			return fmt.Errorf("evict turn: %w", err)
		}
	}
	return nil
}

func (m *Manager) recentTurns(ctx context.Context, userID string, limit int) ([]ConversationTurn, error) {
	entries, err := m.store.Scan(ctx, userID, string(ScopeConversation))
	if err != nil {
		return nil, fmt.Errorf("scan turns: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]ConversationTurn, 0, len(entries))
	for _, raw := range entries {
		entry := canonicalEntry(raw)
		var turn ConversationTurn
		if err := remarshal(entry.Value, &turn); err != nil {
			continue
		}
		out = append(out, turn)
	}
	return out, nil
}

func (m *Manager) lastAnalysisAt(ctx context.Context, userID string) (*time.Time, error) {
	entries, err := m.store.Scan(ctx, userID, string(ScopeAnalysis))
	if err != nil {
		return nil, fmt.Errorf("scan analysis: %w", err)
	}
	var latest int64
	for _, e := range entries {
		if e.UpdatedAtMS > latest {
			latest = e.UpdatedAtMS
		}
	}
	if latest == 0 {
		return nil, nil
	}
	at := time.UnixMilli(latest)
	return &at, nil
}

// envelope wraps a payload with its metadata into the stored shape.
func envelope(value interface{}, md Metadata) map[string]interface{} {
	return map[string]interface{}{
		"value": value,
		"metadata": map[string]interface{}{
			"source":       md.Source,
			"confidence":   md.Confidence,
			"last_updated": md.LastUpdated.Format(time.RFC3339Nano),
			"tags":         md.Tags,
		},
	}
}

// canonicalEntry converts a raw store entry to the canonical MemoryEntry
// form. Values written without an envelope (imported or legacy data) get
// synthesized metadata based on store timestamps.
func canonicalEntry(raw store.Entry) MemoryEntry {
	if env, ok := raw.Value.(map[string]interface{}); ok {
		if mdRaw, hasMD := env["metadata"]; hasMD {
			if _, hasVal := env["value"]; hasVal {
				var md Metadata
				_ = remarshal(mdRaw, &md)
				return MemoryEntry{Key: raw.Key, Value: env["value"], Metadata: md}
			}
		}
	}
	return MemoryEntry{
		Key:   raw.Key,
		Value: raw.Value,
		Metadata: Metadata{
			Source:      "imported",
			Confidence:  0,
			LastUpdated: time.UnixMilli(raw.UpdatedAtMS),
		},
	}
}

var turnSeq atomic.Uint64

// newTurnID builds IDs that sort in append order even when several turns
// land in the same millisecond.
func newTurnID() string {
	return fmt.Sprintf("turn-%013d-%08d-%s", time.Now().UnixMilli(), turnSeq.Add(1), shortID())
}

func shortID() string {
	return uuid.NewString()[:8]
}

func stringOr(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
