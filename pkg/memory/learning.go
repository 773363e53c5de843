package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finagent-io/finagent/pkg/logger"
	"github.com/finagent-io/finagent/pkg/store"
)

// Tool names the learning engine reacts to. Other tools are recorded in
// conversation history but produce no long-term updates.
const (
	ToolCategorizeTransactions = "categorize_transactions"
	ToolGenerateSavingsRecs    = "generate_savings_recommendations"
)

// patternStopWords are skipped when deriving category patterns, on top of the
// minimum word length. Kept deliberately small.
var patternStopWords = map[string]bool{
	"with":     true,
	"from":     true,
	"card":     true,
	"debit":    true,
	"credit":   true,
	"payment":  true,
	"purchase": true,
	"online":   true,
}

// LearningEngine derives long-term preference and category updates from
// successful tool executions. Pattern matching is intentionally exact; no
// fuzzy matching. Precision over recall.
type LearningEngine struct {
	store         store.Store
	minConfidence float64
}

func NewLearningEngine(st store.Store, minConfidence float64) *LearningEngine {
	if minConfidence <= 0 {
		minConfidence = 0.8
	}
	return &LearningEngine{store: st, minConfidence: minConfidence}
}

// LearnFromExecution inspects one successful tool result and applies the
// matching learning rule. Unknown tools are a no-op.
func (l *LearningEngine) LearnFromExecution(ctx context.Context, userID string, exec ToolExecution) error {
	switch exec.ToolName {
	case ToolCategorizeTransactions:
		return l.learnCategoryMappings(ctx, userID, exec.Output)
	case ToolGenerateSavingsRecs:
		return l.recordRecommendationSignal(ctx, userID, exec.Output)
	}
	return nil
}

// learnCategoryMappings appends a mapping for every confidently categorized
// transaction whose derived pattern is not already known. Existing patterns
// are never touched here; user corrections go through CorrectMapping.
func (l *LearningEngine) learnCategoryMappings(ctx context.Context, userID string, output interface{}) error {
	items := extractItems(output, "categorized_transactions", "transactions", "items", "results")
	if len(items) == 0 {
		return nil
	}

	known, err := l.knownPatterns(ctx, userID)
	if err != nil {
		return err
	}

	learned := 0
	for _, item := range items {
		confidence := floatField(item, "confidence")
		if confidence <= l.minConfidence {
			continue
		}
		category := stringField(item, "category")
		if category == "" {
			continue
		}
		pattern := DerivePattern(stringField(item, "description"))
		if pattern == "" || known[pattern] {
			continue
		}

		now := time.Now()
		mapping := CategoryMapping{
			ID:          "category_" + shortID(),
			Pattern:     pattern,
			Category:    category,
			Subcategory: stringField(item, "subcategory"),
			Confidence:  confidence,
			Source:      "learned",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := l.writeCategory(ctx, userID, mapping); err != nil {
			return err
		}
		known[pattern] = true
		learned++
	}

	if learned > 0 {
		logger.InfoCF("memory", "learned category mappings", map[string]interface{}{
			"user_id": userID,
			"count":   learned,
		})
	}
	return nil
}

// CorrectMapping applies a user-sourced category correction: the mapping for
// pattern is replaced (or created) with confidence 1.0.
func (l *LearningEngine) CorrectMapping(ctx context.Context, userID, pattern, category, subcategory string) error {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" || category == "" {
		return fmt.Errorf("correct mapping: pattern and category are required")
	}

	now := time.Now()
	mapping := CategoryMapping{
		ID:          "category_" + shortID(),
		Pattern:     pattern,
		Category:    category,
		Subcategory: subcategory,
		Confidence:  1.0,
		Source:      "user",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Reuse the existing ID when the pattern is already mapped so the
	// correction replaces rather than duplicates.
	entries, err := l.store.Scan(ctx, userID, string(ScopeCategories))
	if err != nil {
		return fmt.Errorf("scan categories: %w", err)
	}
	for _, raw := range entries {
		entry := canonicalEntry(raw)
		var existing CategoryMapping
		if err := remarshal(entry.Value, &existing); err != nil {
			continue
		}
		if existing.Pattern == pattern {
			mapping.ID = entry.Key
			mapping.CreatedAt = existing.CreatedAt
			break
		}
	}
	return l.writeCategory(ctx, userID, mapping)
}

// recordRecommendationSignal appends a coarse usage signal (recommendation
// count plus timestamp). Not yet consumed for personalization.
func (l *LearningEngine) recordRecommendationSignal(ctx context.Context, userID string, output interface{}) error {
	items := extractItems(output, "recommendations", "items", "results")
	now := time.Now()
	pref := UserPreference{
		ID:         fmt.Sprintf("recommendation_usage_%d", now.UnixMilli()),
		Type:       "usage_signal",
		Value:      map[string]interface{}{"recommendation_count": len(items), "generated_at": now.Format(time.RFC3339)},
		Confidence: 0.5,
		Source:     "learned",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	env := envelope(pref, Metadata{Source: pref.Source, Confidence: pref.Confidence, LastUpdated: now})
	if err := l.store.Put(ctx, userID, string(ScopePreferences), pref.ID, env, 0); err != nil {
		return fmt.Errorf("record recommendation signal: %w", err)
	}
	return nil
}

func (l *LearningEngine) writeCategory(ctx context.Context, userID string, mapping CategoryMapping) error {
	env := envelope(mapping, Metadata{Source: mapping.Source, Confidence: mapping.Confidence, LastUpdated: mapping.UpdatedAt})
	if err := l.store.Put(ctx, userID, string(ScopeCategories), mapping.ID, env, 0); err != nil {
		return fmt.Errorf("write category mapping: %w", err)
	}
	return nil
}

func (l *LearningEngine) knownPatterns(ctx context.Context, userID string) (map[string]bool, error) {
	entries, err := l.store.Scan(ctx, userID, string(ScopeCategories))
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	known := make(map[string]bool, len(entries))
	for _, raw := range entries {
		entry := canonicalEntry(raw)
		var mapping CategoryMapping
		if err := remarshal(entry.Value, &mapping); err != nil {
			continue
		}
		if mapping.Pattern != "" {
			known[mapping.Pattern] = true
		}
	}
	return known, nil
}

// DerivePattern lowercases a transaction description and joins its first two
// significant words (longer than 3 characters, not a stop word). Returns ""
// when nothing significant remains.
func DerivePattern(description string) string {
	words := strings.Fields(strings.ToLower(description))
	significant := make([]string, 0, 2)
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?#*()[]\"'-")
		if len(w) <= 3 || patternStopWords[w] {
			continue
		}
		significant = append(significant, w)
		if len(significant) == 2 {
			break
		}
	}
	return strings.Join(significant, " ")
}

// extractItems pulls a slice of object items out of an opaque tool output.
// The output may be the slice itself or a map carrying it under one of the
// given keys.
func extractItems(output interface{}, keys ...string) []map[string]interface{} {
	var raw []interface{}
	switch v := output.(type) {
	case []interface{}:
		raw = v
	case map[string]interface{}:
		for _, k := range keys {
			if arr, ok := v[k].([]interface{}); ok {
				raw = arr
				break
			}
		}
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func floatField(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
