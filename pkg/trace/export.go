package trace

import "context"

// Summary is the aggregate view over a set of orchestration traces.
type Summary struct {
	TotalOrchestrations    int            `json:"total_orchestrations"`
	TotalToolCalls         int            `json:"total_tool_calls"`
	AverageExecutionTimeMS float64        `json:"average_execution_time_ms"`
	SuccessRate            float64        `json:"success_rate"`
	ToolUsageStats         map[string]int `json:"tool_usage_stats"`
}

// Export bundles matching traces with their summary statistics.
type Export struct {
	Orchestrations []*OrchestrationTrace `json:"orchestrations"`
	Summary        Summary               `json:"summary"`
}

// Export returns every trace for the session (all sessions when sessionID is
// empty), ordered by start time, plus summary stats. The average and success
// rate are computed over completed orchestrations only; running ones have no
// duration or outcome yet but still count toward totals and tool usage.
func (t *Tracer) Export(ctx context.Context, sessionID string) (*Export, error) {
	traces, err := t.store.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := Summary{
		TotalOrchestrations: len(traces),
		ToolUsageStats:      make(map[string]int),
	}
	var completed, succeeded int
	var totalMS int64
	for _, tr := range traces {
		summary.TotalToolCalls += len(tr.ToolTraces)
		for _, call := range tr.ToolTraces {
			summary.ToolUsageStats[call.ToolName]++
		}
		if tr.Status != StatusCompleted {
			continue
		}
		completed++
		totalMS += tr.TotalExecutionTimeMS
		if tr.Success {
			succeeded++
		}
	}
	if completed > 0 {
		summary.AverageExecutionTimeMS = float64(totalMS) / float64(completed)
		summary.SuccessRate = float64(succeeded) / float64(completed)
	}

	return &Export{Orchestrations: traces, Summary: summary}, nil
}
