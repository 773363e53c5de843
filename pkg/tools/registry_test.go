package tools

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type stubTool struct {
	name   string
	result *Result
}

func (t *stubTool) Name() string                       { return t.name }
func (t *stubTool) Description() string                { return "stub tool" }
func (t *stubTool) Parameters() map[string]interface{} { return map[string]interface{}{} }
func (t *stubTool) Execute(context.Context, map[string]interface{}) *Result {
	return t.result
}

func TestRegistry_RegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "alpha", result: SuccessResult("ok", map[string]interface{}{"n": 1})})

	result, _ := r.Execute(context.Background(), "alpha", nil)
	if result.IsError {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Output["n"] != 1 {
		t.Fatalf("unexpected output: %v", result.Output)
	}
}

func TestRegistry_UnknownToolIsErrorResult(t *testing.T) {
	r := NewRegistry()
	result, _ := r.Execute(context.Background(), "missing", nil)
	if !result.IsError || result.Err == nil {
		t.Fatalf("expected error result, got %+v", result)
	}
}

func TestRegistry_NilResultBecomesError(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "broken", result: nil})

	result, _ := r.Execute(context.Background(), "broken", nil)
	if !result.IsError {
		t.Fatalf("expected error result for nil tool result")
	}
}

func TestRegistry_ListIsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "zeta", result: SuccessResult("", nil)})
	r.Register(&stubTool{name: "alpha", result: SuccessResult("", nil)})
	r.Register(&stubTool{name: "mid", result: SuccessResult("", nil)})

	want := []string{"alpha", "mid", "zeta"}
	if got := r.List(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if r.Count() != 3 {
		t.Fatalf("count = %d", r.Count())
	}
	if len(r.GetDefinitions()) != 3 || len(r.GetSummaries()) != 3 {
		t.Fatalf("definitions/summaries incomplete")
	}
}

func TestErrorResult(t *testing.T) {
	err := errors.New("boom")
	result := ErrorResult(err)
	if !result.IsError || result.Err != err || result.Summary != "boom" {
		t.Fatalf("unexpected: %+v", result)
	}
}
