package trace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finagent-io/finagent/pkg/logger"
)

// Tracer drives the orchestration lifecycle against an injected Store. A
// trace is born running on Start, grows by ordered LogToolCall appends, and
// is frozen by Complete.
type Tracer struct {
	store Store

	// Defaults stamped onto call metadata when the caller leaves them blank.
	agentVersion string
	modelUsed    string

	// Serializes read-modify-write cycles against the store.
	mu sync.Mutex

	now func() time.Time
}

// NewTracer creates a tracer over the given store. agentVersion and modelUsed
// are defaults for per-call metadata and may be empty.
func NewTracer(st Store, agentVersion, modelUsed string) *Tracer {
	return &Tracer{
		store:        st,
		agentVersion: agentVersion,
		modelUsed:    modelUsed,
		now:          time.Now,
	}
}

// StartOptions carries the optional fields of a new orchestration.
type StartOptions struct {
	PlannedToolSequence []string
	Reasoning           string
	MemoryBefore        map[string]interface{}
}

// Start registers a new running orchestration. A duplicate id fails with
// ErrOrchestrationExists regardless of the existing trace's state.
func (t *Tracer) Start(ctx context.Context, orchestrationID, sessionID, userID string, opts StartOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, found, err := t.store.Get(ctx, orchestrationID)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("start %s: %w", orchestrationID, ErrOrchestrationExists)
	}

	now := t.now()
	trace := &OrchestrationTrace{
		OrchestrationID:     orchestrationID,
		SessionID:           sessionID,
		UserID:              userID,
		Status:              StatusRunning,
		StartTime:           now,
		PlannedToolSequence: append([]string(nil), opts.PlannedToolSequence...),
		ToolTraces:          []ToolCallTrace{},
		Reasoning:           opts.Reasoning,
		MemoryBefore:        opts.MemoryBefore,
	}
	if err := t.store.Put(ctx, trace); err != nil {
		return err
	}
	logger.InfoCF("trace", "orchestration started", map[string]interface{}{
		"orchestration_id": orchestrationID,
		"session_id":       sessionID,
		"planned_tools":    len(opts.PlannedToolSequence),
	})
	return nil
}

// LogToolCall appends one tool invocation to a running orchestration and
// returns the recorded step. The step number is assigned here: always one
// past the current count, so steps are 1-based and gap-free.
func (t *Tracer) LogToolCall(ctx context.Context, orchestrationID string, call ToolCall) (ToolCallTrace, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	trace, err := t.mutable(ctx, orchestrationID)
	if err != nil {
		return ToolCallTrace{}, err
	}

	md := call.Metadata
	if md.AgentVersion == "" {
		md.AgentVersion = t.agentVersion
	}
	if md.ModelUsed == "" {
		md.ModelUsed = t.modelUsed
	}

	rec := ToolCallTrace{
		TraceID:           "call-" + uuid.NewString(),
		SessionID:         trace.SessionID,
		UserID:            trace.UserID,
		Timestamp:         t.now(),
		ToolName:          call.ToolName,
		Input:             call.Input,
		Output:            call.Output,
		ExecutionTimeMS:   call.ExecutionTimeMS,
		Success:           call.Success,
		Reasoning:         call.Reasoning,
		OrchestrationStep: len(trace.ToolTraces) + 1,
		ParentTraceID:     trace.OrchestrationID,
		Metadata:          md,
	}
	trace.ToolTraces = append(trace.ToolTraces, rec)
	if err := t.store.Put(ctx, trace); err != nil {
		return ToolCallTrace{}, err
	}
	logger.DebugCF("trace", "tool call logged", map[string]interface{}{
		"orchestration_id": orchestrationID,
		"tool":             call.ToolName,
		"step":             rec.OrchestrationStep,
		"success":          call.Success,
	})
	return rec, nil
}

// CompleteOptions carries the terminal fields of an orchestration.
type CompleteOptions struct {
	FinalOutput interface{}
	Success     bool
	Reasoning   string
	MemoryAfter map[string]interface{}
}

// Complete freezes a running orchestration, stamping the end time and total
// wall-clock duration. Completing twice fails with ErrOrchestrationCompleted.
func (t *Tracer) Complete(ctx context.Context, orchestrationID string, opts CompleteOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	trace, err := t.mutable(ctx, orchestrationID)
	if err != nil {
		return err
	}

	end := t.now()
	trace.Status = StatusCompleted
	trace.EndTime = &end
	trace.TotalExecutionTimeMS = end.Sub(trace.StartTime).Milliseconds()
	trace.FinalOutput = opts.FinalOutput
	trace.Success = opts.Success
	if opts.Reasoning != "" {
		trace.Reasoning = opts.Reasoning
	}
	trace.MemoryAfter = opts.MemoryAfter

	if err := t.store.Put(ctx, trace); err != nil {
		return err
	}
	logger.InfoCF("trace", "orchestration completed", map[string]interface{}{
		"orchestration_id": orchestrationID,
		"tool_calls":       len(trace.ToolTraces),
		"total_ms":         trace.TotalExecutionTimeMS,
		"success":          opts.Success,
	})
	return nil
}

// Get returns the trace with the given id, or nil when unknown.
func (t *Tracer) Get(ctx context.Context, orchestrationID string) (*OrchestrationTrace, error) {
	trace, found, err := t.store.Get(ctx, orchestrationID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return trace, nil
}

// mutable loads a trace for modification, enforcing the lifecycle.
func (t *Tracer) mutable(ctx context.Context, orchestrationID string) (*OrchestrationTrace, error) {
	trace, found, err := t.store.Get(ctx, orchestrationID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("orchestration %s: %w", orchestrationID, ErrOrchestrationNotFound)
	}
	if trace.Status == StatusCompleted {
		return nil, fmt.Errorf("orchestration %s: %w", orchestrationID, ErrOrchestrationCompleted)
	}
	return trace, nil
}
