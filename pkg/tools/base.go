// Package tools holds the financial analysis tools the orchestrator can
// invoke, plus the registry that dispatches to them. Every tool here is a
// deterministic transform over its arguments: same input, same output.
package tools

import "context"

// Tool is the interface that all tools must implement.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// Result is the outcome of one tool execution. Output carries the structured
// payload; Summary is a one-line human-readable account of it.
type Result struct {
	Output  map[string]interface{}
	Summary string
	IsError bool
	Err     error
}

func SuccessResult(summary string, output map[string]interface{}) *Result {
	return &Result{Output: output, Summary: summary}
}

func ErrorResult(err error) *Result {
	return &Result{IsError: true, Err: err, Summary: err.Error()}
}

func ToolToSchema(tool Tool) map[string]interface{} {
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"parameters":  tool.Parameters(),
		},
	}
}

// transactionsArg extracts the "transactions" argument as a list of rows.
// Rows that are not objects are skipped rather than failing the whole call.
func transactionsArg(args map[string]interface{}) []map[string]interface{} {
	raw, ok := args["transactions"].([]interface{})
	if !ok {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if row, ok := item.(map[string]interface{}); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func stringArg(row map[string]interface{}, key string) string {
	s, _ := row[key].(string)
	return s
}

func floatArg(row map[string]interface{}, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
