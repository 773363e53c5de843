package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/finagent-io/finagent/pkg/logger"
)

type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Execute runs the named tool and reports the result plus wall-clock duration
// in milliseconds. An unknown name is an error result, not a panic.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (*Result, int64) {
	tool, ok := r.Get(name)
	if !ok {
		logger.ErrorCF("tool", "tool not found", map[string]interface{}{"tool": name})
		return ErrorResult(fmt.Errorf("tool %q not found", name)), 0
	}

	start := time.Now()
	result := tool.Execute(ctx, args)
	duration := time.Since(start).Milliseconds()
	if result == nil {
		err := fmt.Errorf("tool %q returned nil result", name)
		logger.ErrorCF("tool", "tool returned nil result", map[string]interface{}{"tool": name})
		return ErrorResult(err), duration
	}

	if result.IsError {
		logger.ErrorCF("tool", "tool execution failed", map[string]interface{}{
			"tool":        name,
			"duration_ms": duration,
			"error":       result.Summary,
		})
	} else {
		logger.InfoCF("tool", "tool execution completed", map[string]interface{}{
			"tool":        name,
			"duration_ms": duration,
		})
	}
	return result, duration
}

// List returns registered tool names, sorted for stable output.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// GetDefinitions returns the function-call schema for every registered tool.
func (r *Registry) GetDefinitions() []map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definitions := make([]map[string]interface{}, 0, len(r.tools))
	for _, name := range r.listLocked() {
		definitions = append(definitions, ToolToSchema(r.tools[name]))
	}
	return definitions
}

// GetSummaries returns "name - description" lines for every registered tool.
func (r *Registry) GetSummaries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]string, 0, len(r.tools))
	for _, name := range r.listLocked() {
		summaries = append(summaries, fmt.Sprintf("- `%s` - %s", name, r.tools[name].Description()))
	}
	return summaries
}

func (r *Registry) listLocked() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
