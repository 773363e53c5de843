// Package trace records the ordered sequence of tool invocations an
// orchestrator makes while servicing one user request, and renders aggregate
// statistics and human-readable reports over those records.
package trace

import "time"

// Status is the orchestration lifecycle state. Failure is not a state: it is
// carried on the Success field of a completed trace.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// CallMetadata captures provenance for one tool call.
type CallMetadata struct {
	AgentVersion   string   `json:"agent_version,omitempty"`
	ModelUsed      string   `json:"model_used,omitempty"`
	Confidence     float64  `json:"confidence,omitempty"`
	MemoryAccessed []string `json:"memory_accessed,omitempty"`
	MemoryUpdated  []string `json:"memory_updated,omitempty"`
}

// ToolCall is the caller-supplied record of one tool invocation.
type ToolCall struct {
	ToolName        string
	Input           interface{}
	Output          interface{}
	ExecutionTimeMS int64
	Success         bool
	Reasoning       string
	Metadata        CallMetadata
}

// ToolCallTrace is one recorded step within an orchestration. Steps are
// 1-based and, by construction, strictly increasing and gap-free.
type ToolCallTrace struct {
	TraceID           string       `json:"trace_id"`
	SessionID         string       `json:"session_id"`
	UserID            string       `json:"user_id"`
	Timestamp         time.Time    `json:"timestamp"`
	ToolName          string       `json:"tool_name"`
	Input             interface{}  `json:"input,omitempty"`
	Output            interface{}  `json:"output,omitempty"`
	ExecutionTimeMS   int64        `json:"execution_time_ms"`
	Success           bool         `json:"success"`
	Reasoning         string       `json:"reasoning,omitempty"`
	OrchestrationStep int          `json:"orchestration_step"`
	ParentTraceID     string       `json:"parent_trace_id"`
	Metadata          CallMetadata `json:"metadata"`
}

// OrchestrationTrace is the full record of one orchestration. It is created
// running, mutated by ordered appends, and frozen on completion; afterwards
// it is treated as immutable history.
type OrchestrationTrace struct {
	OrchestrationID      string                 `json:"orchestration_id"`
	SessionID            string                 `json:"session_id"`
	UserID               string                 `json:"user_id"`
	Status               Status                 `json:"status"`
	StartTime            time.Time              `json:"start_time"`
	EndTime              *time.Time             `json:"end_time,omitempty"`
	TotalExecutionTimeMS int64                  `json:"total_execution_time_ms,omitempty"`
	PlannedToolSequence  []string               `json:"planned_tool_sequence"`
	ToolTraces           []ToolCallTrace        `json:"tool_traces"`
	FinalOutput          interface{}            `json:"final_output,omitempty"`
	Success              bool                   `json:"success"`
	Reasoning            string                 `json:"reasoning,omitempty"`
	MemoryBefore         map[string]interface{} `json:"memory_before,omitempty"`
	MemoryAfter          map[string]interface{} `json:"memory_after,omitempty"`
}

// Clone returns a deep-enough copy for safe divergence: slices and the
// snapshot maps are copied, payload values are shared (treated as immutable).
func (o *OrchestrationTrace) Clone() *OrchestrationTrace {
	if o == nil {
		return nil
	}
	clone := *o
	clone.PlannedToolSequence = append([]string(nil), o.PlannedToolSequence...)
	clone.ToolTraces = append([]ToolCallTrace(nil), o.ToolTraces...)
	if o.EndTime != nil {
		end := *o.EndTime
		clone.EndTime = &end
	}
	if o.MemoryBefore != nil {
		clone.MemoryBefore = make(map[string]interface{}, len(o.MemoryBefore))
		for k, v := range o.MemoryBefore {
			clone.MemoryBefore[k] = v
		}
	}
	if o.MemoryAfter != nil {
		clone.MemoryAfter = make(map[string]interface{}, len(o.MemoryAfter))
		for k, v := range o.MemoryAfter {
			clone.MemoryAfter[k] = v
		}
	}
	return &clone
}
