package tools

import (
	"context"
	"fmt"
	"math"
	"strings"
)

var feeKeywords = []string{
	"overdraft",
	"late fee",
	"service fee",
	"maintenance fee",
	"atm fee",
	"foreign transaction",
	"annual fee",
	"interest charge",
	"fee",
}

// DetectFeesTool flags transactions whose descriptions look like bank or
// card fees and totals them up.
type DetectFeesTool struct{}

func NewDetectFeesTool() *DetectFeesTool { return &DetectFeesTool{} }

func (t *DetectFeesTool) Name() string { return "detect_fees" }

func (t *DetectFeesTool) Description() string {
	return "Find fee and interest charges among transactions and total their cost"
}

func (t *DetectFeesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"transactions": map[string]interface{}{
				"type":        "array",
				"description": "Transaction rows with description, amount and date fields",
			},
		},
		"required": []string{"transactions"},
	}
}

func (t *DetectFeesTool) Execute(_ context.Context, args map[string]interface{}) *Result {
	rows := transactionsArg(args)
	if rows == nil {
		return ErrorResult(fmt.Errorf("detect_fees: missing transactions argument"))
	}

	fees := make([]interface{}, 0)
	var total float64
	for _, row := range rows {
		keyword, ok := matchFeeKeyword(stringArg(row, "description"))
		if !ok {
			continue
		}
		amount := math.Abs(floatArg(row, "amount"))
		total += amount
		fees = append(fees, map[string]interface{}{
			"description": stringArg(row, "description"),
			"amount":      amount,
			"date":        stringArg(row, "date"),
			"fee_type":    keyword,
		})
	}

	return SuccessResult(
		fmt.Sprintf("found %d fee(s) totaling %.2f", len(fees), total),
		map[string]interface{}{
			"fees":       fees,
			"total_fees": total,
			"fee_count":  len(fees),
		},
	)
}

func matchFeeKeyword(description string) (string, bool) {
	lower := strings.ToLower(description)
	for _, kw := range feeKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}
