package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/chzyer/readline"

	"github.com/finagent-io/finagent/pkg/agent"
	"github.com/finagent-io/finagent/pkg/config"
	"github.com/finagent-io/finagent/pkg/logger"
	"github.com/finagent-io/finagent/pkg/memory"
	"github.com/finagent-io/finagent/pkg/store"
	"github.com/finagent-io/finagent/pkg/tools"
	"github.com/finagent-io/finagent/pkg/trace"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const appName = "finagent"

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	fmt.Printf("  Go: %s\n", goVer)
}

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".finagent", "config.json")
}

// appRuntime bundles the wired subsystems behind the CLI commands.
type appRuntime struct {
	cfg          *config.Config
	memStore     store.Store
	traceStore   trace.Store
	manager      *memory.Manager
	tracer       *trace.Tracer
	registry     *tools.Registry
	orchestrator *agent.Orchestrator
	sweeper      *memory.Sweeper
}

func newRuntime(debug bool) (*appRuntime, error) {
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	memStore, err := store.NewSQLiteStore(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	var traceStore trace.Store
	if cfg.Tracing.Durable {
		traceStore, err = trace.NewSQLiteStore(cfg.TracesPath())
		if err != nil {
			memStore.Close()
			return nil, err
		}
	} else {
		traceStore = trace.NewMemoryStore(cfg.Tracing.CompletedRetention)
	}

	manager := memory.NewManager(memStore, memory.Options{
		SessionTTLDays:     cfg.Memory.SessionTTLDays,
		ConversationWindow: cfg.Memory.ConversationWindow,
		SummaryTurns:       cfg.Memory.SummaryTurns,
		LearnMinConfidence: cfg.Memory.LearnMinConfidence,
	})
	tracer := trace.NewTracer(traceStore, cfg.Agent.Version, cfg.Agent.Model)

	registry := tools.NewRegistry()
	registry.Register(tools.NewCategorizeTool())
	registry.Register(tools.NewDetectFeesTool())
	registry.Register(tools.NewSavingsRecommendationsTool())
	registry.Register(tools.NewSavingsReadinessTool())

	return &appRuntime{
		cfg:          cfg,
		memStore:     memStore,
		traceStore:   traceStore,
		manager:      manager,
		tracer:       tracer,
		registry:     registry,
		orchestrator: agent.NewOrchestrator(manager, tracer, registry),
		sweeper:      memory.NewSweeper(memStore, cfg.Memory.SweepCron),
	}, nil
}

func (r *appRuntime) Close() {
	if r.sweeper != nil {
		r.sweeper.Stop()
	}
	r.traceStore.Close()
	r.memStore.Close()
}

func sampleTransactions() []interface{} {
	return []interface{}{
		map[string]interface{}{"description": "Starbucks Store 1234", "amount": -5.75, "date": "2026-04-01"},
		map[string]interface{}{"description": "Whole Foods Market", "amount": -84.20, "date": "2026-04-02"},
		map[string]interface{}{"description": "Netflix Monthly", "amount": -15.99, "date": "2026-04-03"},
		map[string]interface{}{"description": "Lyft Ride", "amount": -12.50, "date": "2026-04-04"},
		map[string]interface{}{"description": "Overdraft Fee", "amount": -35.00, "date": "2026-04-05"},
		map[string]interface{}{"description": "ACME Payroll", "amount": 2500.00, "date": "2026-04-05"},
	}
}

func reviewPlan(transactions []interface{}) []agent.PlannedCall {
	return []agent.PlannedCall{
		{ToolName: "categorize_transactions", Args: map[string]interface{}{"transactions": transactions}, Reasoning: "classify spending"},
		{ToolName: "detect_fees", Args: map[string]interface{}{"transactions": transactions}, Reasoning: "surface avoidable charges"},
		{ToolName: "generate_savings_recommendations", Reasoning: "rank cutback opportunities"},
		{ToolName: "analyze_savings_readiness", Args: map[string]interface{}{"monthly_income": 2500.0, "monthly_expenses": 1800.0}, Reasoning: "score readiness"},
	}
}

func demoCmd(userID, sessionID string, debug bool) error {
	rt, err := newRuntime(debug)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	outcome, err := rt.orchestrator.Run(ctx, agent.Request{
		UserID:    userID,
		SessionID: sessionID,
		Reasoning: "monthly financial review",
		Plan:      reviewPlan(sampleTransactions()),
	})
	if err != nil {
		return err
	}

	for _, step := range outcome.Steps {
		mark := "ok"
		if !step.Success {
			mark = "FAILED"
		}
		fmt.Printf("%-34s %6dms  %s  %s\n", step.ToolName, step.DurationMS, mark, step.Summary)
	}
	fmt.Println()

	report, err := rt.tracer.Report(ctx, outcome.OrchestrationID)
	if err != nil {
		return err
	}
	fmt.Println(report)
	return nil
}

func statusCmd() error {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n\n", appName, formatVersion())
	fmt.Printf("Config:    %s\n", getConfigPath())
	fmt.Printf("Workspace: %s\n", cfg.WorkspacePath())
	fmt.Printf("Memory DB: %s (%s)\n", cfg.DatabasePath(), fileState(cfg.DatabasePath()))
	if cfg.Tracing.Durable {
		fmt.Printf("Trace DB:  %s (%s)\n", cfg.TracesPath(), fileState(cfg.TracesPath()))
	} else {
		fmt.Printf("Trace DB:  in-memory (retention %d)\n", cfg.Tracing.CompletedRetention)
	}
	fmt.Printf("Model:     %s\n", cfg.Agent.Model)
	fmt.Printf("Sweep:     %s\n", cfg.Memory.SweepCron)
	return nil
}

func fileState(path string) string {
	if _, err := os.Stat(path); err != nil {
		return "missing"
	}
	return "present"
}

func onboard() error {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
		return nil
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(cfg.WorkspacePath(), "state"), 0755); err != nil {
		return err
	}
	fmt.Printf("Created config at %s\n", configPath)
	fmt.Printf("Workspace at %s\n", cfg.WorkspacePath())
	return nil
}

func replCmd(userID, sessionID string, debug bool) error {
	rt, err := newRuntime(debug)
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.sweeper.Start()

	ctx := context.Background()
	session, err := rt.manager.InitializeSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	mctx := session.Context()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s> ", appName),
		HistoryFile:     filepath.Join(os.TempDir(), ".finagent_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("Session %s for user %s. Type 'help' for commands.\n", sessionID, userID)
	var lastOrchestration string

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("Goodbye!")
				return nil
			}
			fmt.Printf("read error: %v\n", err)
			continue
		}

		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return nil
		case "help":
			replHelp()
		case "tools":
			for _, line := range rt.registry.GetSummaries() {
				fmt.Println(line)
			}
		case "run":
			outcome, err := rt.orchestrator.Run(ctx, agent.Request{
				UserID:    userID,
				SessionID: sessionID,
				Reasoning: "interactive review",
				Plan:      reviewPlan(sampleTransactions()),
			})
			if err != nil {
				fmt.Printf("run failed: %v\n", err)
				continue
			}
			lastOrchestration = outcome.OrchestrationID
			for _, step := range outcome.Steps {
				fmt.Printf("  %s: %s\n", step.ToolName, step.Summary)
			}
			fmt.Printf("orchestration %s done (success=%v)\n", outcome.OrchestrationID, outcome.Success)
		case "summary":
			summary, err := rt.manager.GetMemorySummary(ctx, mctx)
			if err != nil {
				fmt.Printf("summary failed: %v\n", err)
				continue
			}
			printJSON(summary)
		case "remember":
			if len(fields) < 3 {
				fmt.Println("usage: remember <key> <value>")
				continue
			}
			value := strings.Join(fields[2:], " ")
			err := rt.manager.StoreMemory(ctx, mctx, memory.StoreRequest{
				Scope: memory.ScopeAnalysis,
				Key:   fields[1],
				Value: value,
			})
			if err != nil {
				fmt.Printf("store failed: %v\n", err)
				continue
			}
			fmt.Println("stored.")
		case "recall":
			if len(fields) != 2 {
				fmt.Println("usage: recall <key>")
				continue
			}
			entry, err := rt.manager.RetrieveMemory(ctx, mctx, fields[1])
			if err != nil {
				fmt.Printf("retrieve failed: %v\n", err)
				continue
			}
			if entry == nil {
				fmt.Println("not found.")
				continue
			}
			printJSON(entry)
		case "correct":
			if len(fields) < 3 {
				fmt.Println("usage: correct <pattern> <category> [subcategory]")
				continue
			}
			data := map[string]interface{}{"pattern": fields[1], "category": fields[2]}
			if len(fields) > 3 {
				data["subcategory"] = fields[3]
			}
			err := rt.manager.UpdatePreferencesFromInteraction(ctx, userID, memory.Interaction{
				Type: memory.InteractionCategoryCorrection,
				Data: data,
			})
			if err != nil {
				fmt.Printf("correction failed: %v\n", err)
				continue
			}
			fmt.Println("correction recorded.")
		case "report":
			id := lastOrchestration
			if len(fields) == 2 {
				id = fields[1]
			}
			if id == "" {
				fmt.Println("usage: report <orchestration-id>")
				continue
			}
			report, err := rt.tracer.Report(ctx, id)
			if err != nil {
				fmt.Printf("report failed: %v\n", err)
				continue
			}
			fmt.Println(report)
		case "export":
			export, err := rt.tracer.Export(ctx, sessionID)
			if err != nil {
				fmt.Printf("export failed: %v\n", err)
				continue
			}
			printJSON(export.Summary)
		default:
			fmt.Printf("unknown command: %s (try 'help')\n", fields[0])
		}
	}
}

func replHelp() {
	fmt.Println("Commands:")
	fmt.Println("  run                                 Run the financial review plan")
	fmt.Println("  summary                             Show the memory summary for this user")
	fmt.Println("  remember <key> <value>              Store an analysis note")
	fmt.Println("  recall <key>                        Look a key up across all scopes")
	fmt.Println("  correct <pattern> <cat> [subcat]    Correct a learned category mapping")
	fmt.Println("  report [orchestration-id]           Print a trace report")
	fmt.Println("  export                              Print trace summary stats for this session")
	fmt.Println("  tools                               List registered tools")
	fmt.Println("  exit                                Leave the repl")
}

func exportCmd(sessionID string, debug bool) error {
	rt, err := newRuntime(debug)
	if err != nil {
		return err
	}
	defer rt.Close()

	export, err := rt.tracer.Export(context.Background(), sessionID)
	if err != nil {
		return err
	}
	printJSON(export)
	return nil
}

func reportCmd(orchestrationID string, debug bool) error {
	rt, err := newRuntime(debug)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.tracer.Report(context.Background(), orchestrationID)
	if err != nil {
		return err
	}
	fmt.Println(report)
	return nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("encode error: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
