package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finagent-io/finagent/pkg/store"
)

func categorizedOutput(items ...map[string]interface{}) map[string]interface{} {
	arr := make([]interface{}, 0, len(items))
	for _, it := range items {
		arr = append(arr, it)
	}
	return map[string]interface{}{"categorized_transactions": arr}
}

func TestDerivePattern(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Starbucks Store 1234", "starbucks store"},
		{"PAYMENT TO Spotify Premium", "spotify premium"},
		{"ACH from ACME Payroll", "acme payroll"},
		{"POS 99", ""},
		{"Uber", "uber"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DerivePattern(tc.in), "input %q", tc.in)
	}
}

func TestLearnFromExecution_InsertsHighConfidenceMappings(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	l := NewLearningEngine(st, 0.8)

	output := categorizedOutput(
		map[string]interface{}{"description": "Starbucks Store 1234", "category": "dining", "subcategory": "coffee", "confidence": 0.95},
		map[string]interface{}{"description": "Shell Gasoline", "category": "transport", "confidence": 0.6}, // below threshold
		map[string]interface{}{"description": "Netflix Monthly", "category": "", "confidence": 0.99},        // no category
	)
	require.NoError(t, l.LearnFromExecution(ctx, "u1", ToolExecution{ToolName: ToolCategorizeTransactions, Output: output, Success: true}))

	entries, err := st.Scan(ctx, "u1", string(ScopeCategories))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := canonicalEntry(entries[0])
	var mapping CategoryMapping
	require.NoError(t, remarshal(entry.Value, &mapping))
	assert.Equal(t, "starbucks store", mapping.Pattern)
	assert.Equal(t, "dining", mapping.Category)
	assert.Equal(t, "coffee", mapping.Subcategory)
	assert.Equal(t, "learned", mapping.Source)
	assert.InDelta(t, 0.95, mapping.Confidence, 1e-9)
}

func TestLearnFromExecution_NeverDuplicatesPattern(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	l := NewLearningEngine(st, 0.8)

	item := map[string]interface{}{"description": "Starbucks Store 1234", "category": "dining", "confidence": 0.95}
	require.NoError(t, l.LearnFromExecution(ctx, "u1", ToolExecution{ToolName: ToolCategorizeTransactions, Output: categorizedOutput(item), Success: true}))

	// Same pattern again, different category: exact-match dedupe wins.
	again := map[string]interface{}{"description": "Starbucks Store 9999", "category": "entertainment", "confidence": 0.99}
	require.NoError(t, l.LearnFromExecution(ctx, "u1", ToolExecution{ToolName: ToolCategorizeTransactions, Output: categorizedOutput(again, item), Success: true}))

	entries, err := st.Scan(ctx, "u1", string(ScopeCategories))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "one pattern, one mapping")
}

func TestLearnFromExecution_DuplicateWithinOneBatch(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	l := NewLearningEngine(st, 0.8)

	output := categorizedOutput(
		map[string]interface{}{"description": "Trader Joes Union Sq", "category": "groceries", "confidence": 0.92},
		map[string]interface{}{"description": "Trader Joes Downtown", "category": "groceries", "confidence": 0.97},
	)
	require.NoError(t, l.LearnFromExecution(ctx, "u1", ToolExecution{ToolName: ToolCategorizeTransactions, Output: output, Success: true}))

	entries, err := st.Scan(ctx, "u1", string(ScopeCategories))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCorrectMapping_ReplacesLearnedMapping(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	l := NewLearningEngine(st, 0.8)

	item := map[string]interface{}{"description": "Starbucks Store", "category": "entertainment", "confidence": 0.9}
	require.NoError(t, l.LearnFromExecution(ctx, "u1", ToolExecution{ToolName: ToolCategorizeTransactions, Output: categorizedOutput(item), Success: true}))

	require.NoError(t, l.CorrectMapping(ctx, "u1", "Starbucks Store", "dining", "coffee"))

	entries, err := st.Scan(ctx, "u1", string(ScopeCategories))
	require.NoError(t, err)
	require.Len(t, entries, 1, "correction replaces, not duplicates")

	var mapping CategoryMapping
	require.NoError(t, remarshal(canonicalEntry(entries[0]).Value, &mapping))
	assert.Equal(t, "dining", mapping.Category)
	assert.Equal(t, "user", mapping.Source)
	assert.Equal(t, 1.0, mapping.Confidence)
}

func TestRecommendationSignal_AppendsUsagePreference(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	l := NewLearningEngine(st, 0.8)

	output := map[string]interface{}{
		"recommendations": []interface{}{
			map[string]interface{}{"title": "Cancel unused subscription"},
			map[string]interface{}{"title": "Move to high-yield savings"},
		},
	}
	require.NoError(t, l.LearnFromExecution(ctx, "u1", ToolExecution{ToolName: ToolGenerateSavingsRecs, Output: output, Success: true}))

	entries, err := st.Scan(ctx, "u1", string(ScopePreferences))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var pref UserPreference
	require.NoError(t, remarshal(canonicalEntry(entries[0]).Value, &pref))
	assert.Equal(t, "usage_signal", pref.Type)
	assert.Equal(t, "learned", pref.Source)
	value := pref.Value.(map[string]interface{})
	assert.Equal(t, 2.0, value["recommendation_count"])
	assert.NotEmpty(t, value["generated_at"])
}

func TestLearnFromExecution_UnknownToolIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	l := NewLearningEngine(st, 0.8)

	require.NoError(t, l.LearnFromExecution(ctx, "u1", ToolExecution{ToolName: "detect_fees", Output: map[string]interface{}{"fees": []interface{}{}}, Success: true}))

	prefs, err := st.Scan(ctx, "u1", string(ScopePreferences))
	require.NoError(t, err)
	cats, err := st.Scan(ctx, "u1", string(ScopeCategories))
	require.NoError(t, err)
	assert.Empty(t, prefs)
	assert.Empty(t, cats)
}
