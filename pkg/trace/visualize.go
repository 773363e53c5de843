package trace

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Report renders a human-readable account of one orchestration: header,
// planned sequence, each recorded step with timing and memory touches, and
// the outcome. Rendering is pure; the trace is not modified.
func (t *Tracer) Report(ctx context.Context, orchestrationID string) (string, error) {
	trace, found, err := t.store.Get(ctx, orchestrationID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("orchestration %s: %w", orchestrationID, ErrOrchestrationNotFound)
	}
	return RenderReport(trace), nil
}

// RenderReport formats a trace as a multi-line report. Output depends only
// on the trace contents.
func RenderReport(trace *OrchestrationTrace) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Orchestration %s ===\n", trace.OrchestrationID)
	fmt.Fprintf(&b, "Session: %s  User: %s  Status: %s\n", trace.SessionID, trace.UserID, trace.Status)
	fmt.Fprintf(&b, "Started: %s\n", trace.StartTime.UTC().Format(time.RFC3339))
	if len(trace.PlannedToolSequence) > 0 {
		fmt.Fprintf(&b, "Planned: %s\n", strings.Join(trace.PlannedToolSequence, " -> "))
	}
	if trace.Reasoning != "" {
		fmt.Fprintf(&b, "Reasoning: %s\n", trace.Reasoning)
	}

	if len(trace.ToolTraces) == 0 {
		b.WriteString("\nNo tool calls recorded.\n")
	} else {
		b.WriteString("\n")
		for _, call := range trace.ToolTraces {
			fmt.Fprintf(&b, "Step %d: %s (%dms) %s\n",
				call.OrchestrationStep, call.ToolName, call.ExecutionTimeMS, outcomeMark(call.Success))
			if call.Metadata.Confidence > 0 {
				fmt.Fprintf(&b, "  confidence: %.2f\n", call.Metadata.Confidence)
			}
			if len(call.Metadata.MemoryAccessed) > 0 {
				fmt.Fprintf(&b, "  memory read: %s\n", strings.Join(call.Metadata.MemoryAccessed, ", "))
			}
			if len(call.Metadata.MemoryUpdated) > 0 {
				fmt.Fprintf(&b, "  memory written: %s\n", strings.Join(call.Metadata.MemoryUpdated, ", "))
			}
			if call.Reasoning != "" {
				fmt.Fprintf(&b, "  reasoning: %s\n", call.Reasoning)
			}
		}
	}

	b.WriteString("\n")
	if trace.Status == StatusCompleted {
		fmt.Fprintf(&b, "Outcome: %s in %dms across %d tool call(s)\n",
			outcomeWord(trace.Success), trace.TotalExecutionTimeMS, len(trace.ToolTraces))
	} else {
		fmt.Fprintf(&b, "Outcome: still running, %d tool call(s) so far\n", len(trace.ToolTraces))
	}
	return b.String()
}

func outcomeMark(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAILED"
}

func outcomeWord(ok bool) string {
	if ok {
		return "succeeded"
	}
	return "failed"
}
