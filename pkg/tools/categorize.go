package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// keywordRule is a built-in fallback when no learned mapping matches.
type keywordRule struct {
	keyword     string
	category    string
	subcategory string
	confidence  float64
}

// Ordered: first match wins, more specific keywords before generic ones.
var defaultKeywordRules = []keywordRule{
	{"starbucks", "dining", "coffee", 0.95},
	{"coffee", "dining", "coffee", 0.9},
	{"restaurant", "dining", "", 0.9},
	{"grubhub", "dining", "delivery", 0.92},
	{"doordash", "dining", "delivery", 0.92},
	{"uber eats", "dining", "delivery", 0.92},
	{"grocery", "groceries", "", 0.92},
	{"trader joe", "groceries", "", 0.95},
	{"whole foods", "groceries", "", 0.95},
	{"safeway", "groceries", "", 0.93},
	{"uber", "transport", "rideshare", 0.9},
	{"lyft", "transport", "rideshare", 0.92},
	{"shell", "transport", "fuel", 0.9},
	{"chevron", "transport", "fuel", 0.9},
	{"gas", "transport", "fuel", 0.85},
	{"parking", "transport", "parking", 0.9},
	{"netflix", "entertainment", "streaming", 0.95},
	{"spotify", "entertainment", "streaming", 0.95},
	{"hulu", "entertainment", "streaming", 0.95},
	{"cinema", "entertainment", "", 0.88},
	{"gym", "health", "fitness", 0.9},
	{"pharmacy", "health", "", 0.9},
	{"cvs", "health", "pharmacy", 0.9},
	{"rent", "housing", "rent", 0.93},
	{"mortgage", "housing", "mortgage", 0.95},
	{"electric", "utilities", "", 0.88},
	{"internet", "utilities", "", 0.88},
	{"insurance", "insurance", "", 0.9},
	{"payroll", "income", "salary", 0.95},
	{"salary", "income", "salary", 0.95},
	{"amazon", "shopping", "online", 0.85},
	{"target", "shopping", "", 0.85},
}

// CategorizeTool assigns a category to each transaction. Learned mappings
// passed via the known_mappings argument take precedence over the built-in
// keyword rules; anything neither matches falls out as uncategorized with
// low confidence.
type CategorizeTool struct {
	rules []keywordRule
}

func NewCategorizeTool() *CategorizeTool {
	return &CategorizeTool{rules: defaultKeywordRules}
}

func (t *CategorizeTool) Name() string { return "categorize_transactions" }

func (t *CategorizeTool) Description() string {
	return "Assign a spending category to each transaction using learned mappings, then keyword rules"
}

func (t *CategorizeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"transactions": map[string]interface{}{
				"type":        "array",
				"description": "Transaction rows with description, amount and date fields",
			},
			"known_mappings": map[string]interface{}{
				"type":        "array",
				"description": "Previously learned pattern-to-category mappings, applied before keyword rules",
			},
		},
		"required": []string{"transactions"},
	}
}

func (t *CategorizeTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	rows := transactionsArg(args)
	if rows == nil {
		return ErrorResult(fmt.Errorf("categorize_transactions: missing transactions argument"))
	}
	mappings := knownMappingsArg(args)

	categorized := make([]interface{}, 0, len(rows))
	totals := make(map[string]interface{})
	for _, row := range rows {
		description := stringArg(row, "description")
		category, subcategory, confidence, matchedBy := t.classify(description, mappings)

		out := make(map[string]interface{}, len(row)+4)
		for k, v := range row {
			out[k] = v
		}
		out["category"] = category
		out["subcategory"] = subcategory
		out["confidence"] = confidence
		out["matched_by"] = matchedBy
		categorized = append(categorized, out)

		amount := floatArg(row, "amount")
		if amount < 0 {
			amount = -amount
		}
		prev, _ := totals[category].(float64)
		totals[category] = prev + amount
	}

	return SuccessResult(
		fmt.Sprintf("categorized %d transaction(s) into %d categorie(s)", len(rows), len(totals)),
		map[string]interface{}{
			"categorized_transactions": categorized,
			"category_totals":          totals,
		},
	)
}

func (t *CategorizeTool) classify(description string, mappings []knownMapping) (category, subcategory string, confidence float64, matchedBy string) {
	lower := strings.ToLower(description)

	for _, m := range mappings {
		if m.pattern != "" && strings.Contains(lower, m.pattern) {
			return m.category, m.subcategory, m.confidence, "learned_mapping"
		}
	}
	for _, rule := range t.rules {
		if strings.Contains(lower, rule.keyword) {
			return rule.category, rule.subcategory, rule.confidence, "keyword_rule"
		}
	}
	return "uncategorized", "", 0.3, "none"
}

type knownMapping struct {
	pattern     string
	category    string
	subcategory string
	confidence  float64
}

func knownMappingsArg(args map[string]interface{}) []knownMapping {
	raw, ok := args["known_mappings"].([]interface{})
	if !ok {
		return nil
	}
	out := make([]knownMapping, 0, len(raw))
	for _, item := range raw {
		row, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		m := knownMapping{
			pattern:     strings.ToLower(stringArg(row, "pattern")),
			category:    stringArg(row, "category"),
			subcategory: stringArg(row, "subcategory"),
			confidence:  floatArg(row, "confidence"),
		}
		if m.confidence == 0 {
			m.confidence = 1.0
		}
		if m.pattern != "" && m.category != "" {
			out = append(out, m)
		}
	}
	// Longest pattern first so the most specific mapping wins.
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].pattern) > len(out[j].pattern) })
	return out
}
