package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Categories where cutting back is realistic, with the share of spend a
// recommendation treats as recoverable.
var trimmableCategories = map[string]float64{
	"dining":        0.30,
	"entertainment": 0.50,
	"shopping":      0.25,
	"transport":     0.15,
	"uncategorized": 0.10,
}

// SavingsRecommendationsTool turns per-category spending into a ranked list
// of savings recommendations.
type SavingsRecommendationsTool struct{}

func NewSavingsRecommendationsTool() *SavingsRecommendationsTool {
	return &SavingsRecommendationsTool{}
}

func (t *SavingsRecommendationsTool) Name() string { return "generate_savings_recommendations" }

func (t *SavingsRecommendationsTool) Description() string {
	return "Rank spending categories by recoverable amount and suggest concrete cutbacks"
}

func (t *SavingsRecommendationsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"category_totals": map[string]interface{}{
				"type":        "object",
				"description": "Spend per category, as produced by categorize_transactions",
			},
		},
		"required": []string{"category_totals"},
	}
}

func (t *SavingsRecommendationsTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	totals, ok := args["category_totals"].(map[string]interface{})
	if !ok {
		return ErrorResult(fmt.Errorf("generate_savings_recommendations: missing category_totals argument"))
	}

	type candidate struct {
		category string
		spend    float64
		savings  float64
		share    float64
	}
	candidates := make([]candidate, 0, len(totals))
	for category, raw := range totals {
		share, trimmable := trimmableCategories[category]
		if !trimmable {
			continue
		}
		spend, _ := raw.(float64)
		if spend <= 0 {
			continue
		}
		candidates = append(candidates, candidate{
			category: category,
			spend:    spend,
			savings:  round2(spend * share),
			share:    share,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].savings != candidates[j].savings {
			return candidates[i].savings > candidates[j].savings
		}
		return candidates[i].category < candidates[j].category
	})

	recommendations := make([]interface{}, 0, len(candidates))
	var totalSavings float64
	for _, c := range candidates {
		totalSavings += c.savings
		recommendations = append(recommendations, map[string]interface{}{
			"title":                     fmt.Sprintf("Reduce %s spending by %.0f%%", c.category, c.share*100),
			"category":                  c.category,
			"current_monthly_spend":     c.spend,
			"estimated_monthly_savings": c.savings,
		})
	}

	return SuccessResult(
		fmt.Sprintf("generated %d recommendation(s) worth %.2f/month", len(recommendations), totalSavings),
		map[string]interface{}{
			"recommendations":         recommendations,
			"total_potential_savings": round2(totalSavings),
		},
	)
}

// SavingsReadinessTool scores how prepared a user is to start saving, based
// on income versus expenses.
type SavingsReadinessTool struct{}

func NewSavingsReadinessTool() *SavingsReadinessTool { return &SavingsReadinessTool{} }

func (t *SavingsReadinessTool) Name() string { return "analyze_savings_readiness" }

func (t *SavingsReadinessTool) Description() string {
	return "Score savings readiness from monthly income and expenses"
}

func (t *SavingsReadinessTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"monthly_income": map[string]interface{}{
				"type":        "number",
				"description": "Total monthly income",
			},
			"monthly_expenses": map[string]interface{}{
				"type":        "number",
				"description": "Total monthly expenses",
			},
		},
		"required": []string{"monthly_income", "monthly_expenses"},
	}
}

func (t *SavingsReadinessTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	income := floatArg(args, "monthly_income")
	expenses := floatArg(args, "monthly_expenses")
	if income <= 0 {
		return ErrorResult(fmt.Errorf("analyze_savings_readiness: monthly_income must be positive"))
	}

	rate := (income - expenses) / income
	score := int(math.Round(math.Max(0, math.Min(1, rate)) * 100))

	level := "low"
	switch {
	case rate >= 0.20:
		level = "high"
	case rate >= 0.05:
		level = "moderate"
	}

	advice := "Spending exceeds income; review fixed costs before setting a savings goal."
	switch level {
	case "high":
		advice = "Strong margin; automate transfers to savings at the start of each month."
	case "moderate":
		advice = "Some headroom; target one discretionary category to free up more."
	default:
		if rate >= 0 {
			advice = "Thin margin; cut recurring subscriptions and fees first."
		}
	}

	return SuccessResult(
		fmt.Sprintf("savings readiness %s (score %d)", level, score),
		map[string]interface{}{
			"savings_rate":    round2(rate),
			"readiness_score": score,
			"readiness_level": level,
			"advice":          advice,
		},
	)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
