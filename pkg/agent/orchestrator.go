// Package agent wires memory, tracing and the tool registry into an
// orchestrator that runs a planned tool sequence for one user request.
package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finagent-io/finagent/pkg/logger"
	"github.com/finagent-io/finagent/pkg/memory"
	"github.com/finagent-io/finagent/pkg/tools"
	"github.com/finagent-io/finagent/pkg/trace"
)

// PlannedCall is one step of an orchestration plan.
type PlannedCall struct {
	ToolName  string
	Args      map[string]interface{}
	Reasoning string
}

// Request describes one orchestration to run.
type Request struct {
	UserID    string
	SessionID string
	Reasoning string
	Plan      []PlannedCall
}

// StepOutcome is the observable result of one executed plan step.
type StepOutcome struct {
	ToolName   string
	Success    bool
	Output     map[string]interface{}
	Summary    string
	DurationMS int64
}

// Outcome is the result of a full orchestration run.
type Outcome struct {
	OrchestrationID string
	Success         bool
	Steps           []StepOutcome
	FinalOutput     map[string]interface{}
}

// Orchestrator executes plans step by step: each tool call is recorded in
// conversation memory (feeding the learning engine) and appended to the
// orchestration trace.
type Orchestrator struct {
	memory   *memory.Manager
	tracer   *trace.Tracer
	registry *tools.Registry
}

func NewOrchestrator(mem *memory.Manager, tracer *trace.Tracer, registry *tools.Registry) *Orchestrator {
	return &Orchestrator{
		memory:   mem,
		tracer:   tracer,
		registry: registry,
	}
}

// Run executes the plan in order. A failed tool call is recorded and the
// sequence continues; the orchestration as a whole succeeds only when every
// step did. Memory and trace bookkeeping errors abort the run.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Outcome, error) {
	if len(req.Plan) == 0 {
		return nil, fmt.Errorf("orchestrate: empty plan")
	}

	session, err := o.memory.InitializeSession(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}
	mctx := session.Context()

	orchestrationID := "orch-" + uuid.NewString()
	planned := make([]string, 0, len(req.Plan))
	for _, call := range req.Plan {
		planned = append(planned, call.ToolName)
	}
	if err := o.tracer.Start(ctx, orchestrationID, req.SessionID, req.UserID, trace.StartOptions{
		PlannedToolSequence: planned,
		Reasoning:           req.Reasoning,
		MemoryBefore:        session.Snapshot(),
	}); err != nil {
		return nil, err
	}

	outcome := &Outcome{
		OrchestrationID: orchestrationID,
		Success:         true,
		FinalOutput:     make(map[string]interface{}, len(req.Plan)),
	}
	// Outputs of completed steps, keyed by tool name, for feeding later steps.
	produced := make(map[string]map[string]interface{})

	for _, call := range req.Plan {
		args, accessed := o.resolveArgs(session, call, produced)

		result, durationMS := o.registry.Execute(ctx, call.ToolName, args)
		success := !result.IsError

		exec := memory.ToolExecution{
			ToolName:        call.ToolName,
			Input:           args,
			Output:          result.Output,
			ExecutionTimeMS: durationMS,
			Success:         success,
			Reasoning:       call.Reasoning,
		}
		if err := o.memory.RecordToolExecution(ctx, mctx, exec); err != nil {
			return nil, err
		}

		// Scope-level deltas: every recorded execution appends a turn, and
		// successful runs may feed the learner.
		updated := []string{string(memory.ScopeConversation)}
		if success {
			switch call.ToolName {
			case memory.ToolCategorizeTransactions:
				updated = append(updated, string(memory.ScopeCategories))
			case memory.ToolGenerateSavingsRecs:
				updated = append(updated, string(memory.ScopePreferences))
			}
		}

		if _, err := o.tracer.LogToolCall(ctx, orchestrationID, trace.ToolCall{
			ToolName:        call.ToolName,
			Input:           args,
			Output:          result.Output,
			ExecutionTimeMS: durationMS,
			Success:         success,
			Reasoning:       call.Reasoning,
			Metadata: trace.CallMetadata{
				MemoryAccessed: accessed,
				MemoryUpdated:  updated,
			},
		}); err != nil {
			return nil, err
		}

		outcome.Steps = append(outcome.Steps, StepOutcome{
			ToolName:   call.ToolName,
			Success:    success,
			Output:     result.Output,
			Summary:    result.Summary,
			DurationMS: durationMS,
		})
		if success {
			produced[call.ToolName] = result.Output
			outcome.FinalOutput[call.ToolName] = result.Output
		} else {
			outcome.Success = false
			logger.WarnCF("agent", "plan step failed", map[string]interface{}{
				"orchestration_id": orchestrationID,
				"tool":             call.ToolName,
				"error":            result.Summary,
			})
		}
	}

	after, err := o.memoryAfter(ctx, mctx)
	if err != nil {
		return nil, err
	}
	if err := o.tracer.Complete(ctx, orchestrationID, trace.CompleteOptions{
		FinalOutput: outcome.FinalOutput,
		Success:     outcome.Success,
		Reasoning:   req.Reasoning,
		MemoryAfter: after,
	}); err != nil {
		return nil, err
	}

	logger.InfoCF("agent", "orchestration finished", map[string]interface{}{
		"orchestration_id": orchestrationID,
		"steps":            len(outcome.Steps),
		"success":          outcome.Success,
	})
	return outcome, nil
}

// resolveArgs fills in arguments a step left blank from session memory and
// earlier step outputs. Caller-supplied arguments always win.
func (o *Orchestrator) resolveArgs(session *memory.Session, call PlannedCall, produced map[string]map[string]interface{}) (map[string]interface{}, []string) {
	args := make(map[string]interface{}, len(call.Args)+1)
	for k, v := range call.Args {
		args[k] = v
	}
	var accessed []string

	switch call.ToolName {
	case memory.ToolCategorizeTransactions:
		if _, ok := args["known_mappings"]; !ok && len(session.Categories) > 0 {
			mappings := make([]interface{}, 0, len(session.Categories))
			for _, m := range session.Categories {
				mappings = append(mappings, map[string]interface{}{
					"pattern":     m.Pattern,
					"category":    m.Category,
					"subcategory": m.Subcategory,
					"confidence":  m.Confidence,
				})
			}
			args["known_mappings"] = mappings
			accessed = append(accessed, string(memory.ScopeCategories))
		}
	case memory.ToolGenerateSavingsRecs:
		if _, ok := args["category_totals"]; !ok {
			if out, ok := produced[memory.ToolCategorizeTransactions]; ok {
				if totals, ok := out["category_totals"]; ok {
					args["category_totals"] = totals
				}
			}
		}
	}
	return args, accessed
}

// memoryAfter builds the post-run memory snapshot in the same shape as the
// session snapshot taken at start.
func (o *Orchestrator) memoryAfter(ctx context.Context, mctx memory.Context) (map[string]interface{}, error) {
	summary, err := o.memory.GetMemorySummary(ctx, mctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"session_id":       mctx.SessionID,
		"preference_count": len(summary.Preferences),
		"category_count":   len(summary.Categories),
		"attribute_count":  len(summary.SessionAttributes),
	}, nil
}
