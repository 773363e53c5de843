package tools

import (
	"context"
	"testing"
)

func txRows(rows ...map[string]interface{}) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, r)
	}
	return out
}

func TestCategorizeTool_KeywordRules(t *testing.T) {
	tool := NewCategorizeTool()
	result := tool.Execute(context.Background(), map[string]interface{}{
		"transactions": txRows(
			map[string]interface{}{"description": "Starbucks Store 1234", "amount": -5.75},
			map[string]interface{}{"description": "Netflix Monthly", "amount": -15.99},
			map[string]interface{}{"description": "Mystery Vendor 42", "amount": -20.00},
		),
	})
	if result.IsError {
		t.Fatalf("unexpected error: %v", result.Err)
	}

	rows := result.Output["categorized_transactions"].([]interface{})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	first := rows[0].(map[string]interface{})
	if first["category"] != "dining" || first["subcategory"] != "coffee" || first["matched_by"] != "keyword_rule" {
		t.Fatalf("starbucks misclassified: %v", first)
	}
	second := rows[1].(map[string]interface{})
	if second["category"] != "entertainment" {
		t.Fatalf("netflix misclassified: %v", second)
	}
	third := rows[2].(map[string]interface{})
	if third["category"] != "uncategorized" || third["confidence"] != 0.3 {
		t.Fatalf("unknown vendor should be uncategorized: %v", third)
	}

	totals := result.Output["category_totals"].(map[string]interface{})
	if totals["dining"] != 5.75 {
		t.Fatalf("totals use absolute amounts: %v", totals)
	}
}

func TestCategorizeTool_LearnedMappingsWin(t *testing.T) {
	tool := NewCategorizeTool()
	result := tool.Execute(context.Background(), map[string]interface{}{
		"transactions": txRows(
			// Keyword rules would say dining; the learned mapping overrides.
			map[string]interface{}{"description": "Starbucks Store 1234", "amount": -5.75},
		),
		"known_mappings": []interface{}{
			map[string]interface{}{"pattern": "starbucks store", "category": "business", "subcategory": "client_meetings", "confidence": 1.0},
		},
	})
	if result.IsError {
		t.Fatalf("unexpected error: %v", result.Err)
	}

	row := result.Output["categorized_transactions"].([]interface{})[0].(map[string]interface{})
	if row["category"] != "business" || row["matched_by"] != "learned_mapping" {
		t.Fatalf("learned mapping did not take precedence: %v", row)
	}
}

func TestCategorizeTool_Deterministic(t *testing.T) {
	tool := NewCategorizeTool()
	args := map[string]interface{}{
		"transactions": txRows(
			map[string]interface{}{"description": "Lyft ride", "amount": -12.50},
			map[string]interface{}{"description": "Whole Foods", "amount": -84.20},
		),
	}
	first := tool.Execute(context.Background(), args)
	second := tool.Execute(context.Background(), args)

	a := first.Output["category_totals"].(map[string]interface{})
	b := second.Output["category_totals"].(map[string]interface{})
	if a["transport"] != b["transport"] || a["groceries"] != b["groceries"] {
		t.Fatalf("same input produced different totals: %v vs %v", a, b)
	}
}

func TestCategorizeTool_MissingTransactions(t *testing.T) {
	tool := NewCategorizeTool()
	if result := tool.Execute(context.Background(), map[string]interface{}{}); !result.IsError {
		t.Fatalf("expected error result")
	}
}

func TestDetectFeesTool(t *testing.T) {
	tool := NewDetectFeesTool()
	result := tool.Execute(context.Background(), map[string]interface{}{
		"transactions": txRows(
			map[string]interface{}{"description": "Overdraft Fee", "amount": -35.00, "date": "2026-04-02"},
			map[string]interface{}{"description": "Monthly Maintenance Fee", "amount": -12.00, "date": "2026-04-05"},
			map[string]interface{}{"description": "Starbucks Store", "amount": -5.75, "date": "2026-04-06"},
		),
	})
	if result.IsError {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Output["fee_count"] != 2 {
		t.Fatalf("expected 2 fees: %v", result.Output)
	}
	if result.Output["total_fees"] != 47.00 {
		t.Fatalf("expected 47.00 total, got %v", result.Output["total_fees"])
	}
	first := result.Output["fees"].([]interface{})[0].(map[string]interface{})
	if first["fee_type"] != "overdraft" {
		t.Fatalf("expected overdraft match first: %v", first)
	}
}

func TestSavingsRecommendationsTool(t *testing.T) {
	tool := NewSavingsRecommendationsTool()
	result := tool.Execute(context.Background(), map[string]interface{}{
		"category_totals": map[string]interface{}{
			"dining":        200.0, // 30% -> 60
			"entertainment": 80.0,  // 50% -> 40
			"housing":       1500.0, // not trimmable
		},
	})
	if result.IsError {
		t.Fatalf("unexpected error: %v", result.Err)
	}

	recs := result.Output["recommendations"].([]interface{})
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	top := recs[0].(map[string]interface{})
	if top["category"] != "dining" || top["estimated_monthly_savings"] != 60.0 {
		t.Fatalf("expected dining ranked first: %v", top)
	}
	if result.Output["total_potential_savings"] != 100.0 {
		t.Fatalf("expected 100.0 total, got %v", result.Output["total_potential_savings"])
	}
}

func TestSavingsReadinessTool(t *testing.T) {
	tool := NewSavingsReadinessTool()

	high := tool.Execute(context.Background(), map[string]interface{}{
		"monthly_income": 5000.0, "monthly_expenses": 3500.0,
	})
	if high.Output["readiness_level"] != "high" || high.Output["readiness_score"] != 30 {
		t.Fatalf("unexpected high case: %v", high.Output)
	}

	moderate := tool.Execute(context.Background(), map[string]interface{}{
		"monthly_income": 5000.0, "monthly_expenses": 4600.0,
	})
	if moderate.Output["readiness_level"] != "moderate" {
		t.Fatalf("unexpected moderate case: %v", moderate.Output)
	}

	negative := tool.Execute(context.Background(), map[string]interface{}{
		"monthly_income": 3000.0, "monthly_expenses": 3600.0,
	})
	if negative.Output["readiness_level"] != "low" || negative.Output["readiness_score"] != 0 {
		t.Fatalf("unexpected negative case: %v", negative.Output)
	}

	if bad := tool.Execute(context.Background(), map[string]interface{}{"monthly_expenses": 100.0}); !bad.IsError {
		t.Fatalf("expected error for missing income")
	}
}
