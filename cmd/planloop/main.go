// Command planloop runs goals through the task orchestrator, either once
// from the command line or as an HTTP server streaming run events.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/planloop/planloop/agent"
	"github.com/planloop/planloop/config"
	"github.com/planloop/planloop/core"
	"github.com/planloop/planloop/evaluation"
	"github.com/planloop/planloop/execution"
	"github.com/planloop/planloop/logging"
	"github.com/planloop/planloop/memory"
	"github.com/planloop/planloop/model"
	anthropicmodel "github.com/planloop/planloop/model/anthropic"
	openaimodel "github.com/planloop/planloop/model/openai"
	"github.com/planloop/planloop/planning"
	"github.com/planloop/planloop/server"
	"github.com/planloop/planloop/stream"
	"github.com/planloop/planloop/tool"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "planloop",
		Short:         "LLM task orchestrator: plan, execute, evaluate",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newCollabCmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	var quick bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Execute a goal once and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			goal := strings.Join(args, " ")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildAgent(cfg, logger, stream.NewBus(busOptions(cfg)), memory.NewInMemoryLongTerm())
			if err != nil {
				return err
			}

			if verbose {
				go printEvents(a.Bus().Subscribe())
			}

			if quick {
				output, err := a.QuickTask(ctx, goal)
				if err != nil {
					return err
				}
				fmt.Println(output)
				return nil
			}

			result, err := a.Run(ctx, goal)
			if err != nil {
				return err
			}
			printResult(result)
			if !result.Success {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&quick, "quick", false, "execute as a single task without planning or evaluation")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print run events as they happen")
	return cmd
}

func newCollabCmd(configPath *string) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "collab <goal>",
		Short: "Execute a goal through the planner, executor and reviewer roles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			goal := strings.Join(args, " ")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orch, err := buildOrchestrator(cfg, logger, stream.NewBus(busOptions(cfg)), memory.NewInMemoryLongTerm())
			if err != nil {
				return err
			}

			if verbose {
				go printEvents(orch.Bus().Subscribe())
			}

			result, err := orch.Run(ctx, goal)
			if err != nil {
				return err
			}
			printCollabResult(cmd.OutOrStdout(), result)
			if !result.Success {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print run events as they happen")
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve runs over HTTP with server-sent event streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			archive := memory.NewInMemoryLongTerm()

			factory := func(bus *stream.Bus) server.Runner {
				a, err := buildAgent(cfg, logger, bus, archive)
				if err != nil {
					return failingRunner{err: err}
				}
				return a
			}

			srv := server.New(factory, archive, func(o *server.Options) {
				o.Addr = cfg.Server.Addr
				o.ShutdownTimeout = cfg.Server.ShutdownTimeout
				o.Logger = logger
				o.BusOptions = []func(o *stream.BusOptions){busOptions(cfg)}
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("server listening", "addr", cfg.Server.Addr)
			return srv.Start(ctx)
		},
	}
}

// failingRunner surfaces agent construction errors through the run API.
type failingRunner struct{ err error }

func (r failingRunner) Run(ctx context.Context, goal string) (*agent.RunResult, error) {
	return nil, r.err
}

func buildAgent(cfg *config.Config, logger logging.Logger, bus *stream.Bus, archive core.LongTermMemory) (*agent.Agent, error) {
	m, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}

	registry := tool.NewRegistry()
	registry.MustRegister(tool.NewFileReadTool())
	registry.MustRegister(tool.NewFileWriteTool())
	registry.MustRegister(tool.NewFileListTool())
	registry.MustRegister(tool.NewFetchTool())

	return agent.New(m, registry, func(o *agent.Options) {
		o.Name = cfg.Agent.Name
		o.ThinkingEnabled = cfg.Agent.ThinkingEnabled
		o.MaxReplans = cfg.Planning.MaxReplans
		if !cfg.Planning.AllowReplanning {
			o.MaxReplans = 0
		}
		o.MemoryLimit = cfg.Memory.MaxMessages
		o.Bus = bus
		o.Archive = archive
		o.Logger = logger
		o.Planning = []func(p *planning.Options){func(p *planning.Options) {
			p.MaxSubtasks = cfg.Planning.MaxSubtasks
			p.MaxAttempts = cfg.Planning.MaxAttempts
			p.Logger = logger
		}}
		o.Execution = []func(e *execution.Options){func(e *execution.Options) {
			e.MaxIterations = cfg.Agent.MaxIterations
			e.Temperature = cfg.Model.Temperature
		}}
		o.Evaluation = []func(e *evaluation.Options){func(e *evaluation.Options) {
			e.SuccessThreshold = cfg.Evaluation.SuccessThreshold
		}}
	}), nil
}

// buildOrchestrator wires the three-role orchestrator. Each role gets its own
// model client so per-role model configuration stays possible later.
func buildOrchestrator(cfg *config.Config, logger logging.Logger, bus *stream.Bus, archive core.LongTermMemory) (*agent.Orchestrator, error) {
	planner, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}
	executor, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}
	reviewer, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}

	registry := tool.NewRegistry()
	registry.MustRegister(tool.NewFileReadTool())
	registry.MustRegister(tool.NewFileWriteTool())
	registry.MustRegister(tool.NewFileListTool())
	registry.MustRegister(tool.NewFetchTool())

	return agent.NewOrchestrator(planner, executor, reviewer, registry, func(o *agent.OrchestratorOptions) {
		o.MaxRounds = cfg.Planning.MaxReplans
		if !cfg.Planning.AllowReplanning {
			o.MaxRounds = 0
		}
		o.MemoryLimit = cfg.Memory.MaxMessages
		o.Bus = bus
		o.Archive = archive
		o.Logger = logger
		o.Planning = []func(p *planning.Options){func(p *planning.Options) {
			p.MaxSubtasks = cfg.Planning.MaxSubtasks
			p.MaxAttempts = cfg.Planning.MaxAttempts
			p.Logger = logger
		}}
		o.Execution = []func(e *execution.Options){func(e *execution.Options) {
			e.MaxIterations = cfg.Agent.MaxIterations
			e.Temperature = cfg.Model.Temperature
		}}
		o.Evaluation = []func(e *evaluation.Options){func(e *evaluation.Options) {
			e.SuccessThreshold = cfg.Evaluation.SuccessThreshold
		}}
	}), nil
}

func buildModel(cfg *config.Config) (model.Model, error) {
	var m model.Model
	switch cfg.Model.Provider {
	case "openai":
		m = openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			o.Temperature = cfg.Model.Temperature
			o.MaxCompletionTokens = cfg.Model.MaxTokens
		})
	case "anthropic":
		optFns := []func(o *anthropicmodel.Options){func(o *anthropicmodel.Options) {
			o.Temperature = cfg.Model.Temperature
			o.MaxTokens = cfg.Model.MaxTokens
		}}
		if cfg.Model.Name != "" {
			optFns = append(optFns, anthropicmodel.WithModelName(cfg.Model.Name))
		}
		m = anthropicmodel.NewModel(optFns...)
	case "mock":
		m = model.NewMock()
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}

	return model.WithRetry(m, func(o *model.RetryOptions) {
		o.MaxAttempts = cfg.Model.RetryAttempts
	}), nil
}

func busOptions(cfg *config.Config) func(o *stream.BusOptions) {
	return func(o *stream.BusOptions) {
		o.SubscriberBuffer = cfg.Stream.SubscriberBuffer
		o.HistorySize = cfg.Stream.HistorySize
	}
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.ParseLogLevel(cfg.Logging.Level),
		Format:    cfg.Logging.Format,
		Output:    os.Stderr,
		Component: cfg.Agent.Name,
	})
}

func printEvents(sub *stream.Subscription) {
	for event := range sub.Events() {
		fmt.Printf("[%s] %v\n", event.Type, event.Data)
	}
}

func printCollabResult(w io.Writer, result *agent.CollabResult) {
	status := "FAILED"
	if result.Success {
		status = "OK"
	}
	fmt.Fprintf(w, "run %s: %s (score %.2f)\n", result.RunID, status, result.Evaluation.OverallScore)
	for _, msg := range result.Transcript {
		fmt.Fprintf(w, "[%s -> %s] %s\n", msg.From, msg.To, msg.Content)
	}
	if result.Output != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, result.Output)
	}
}

func printResult(result *agent.RunResult) {
	status := "FAILED"
	if result.Success {
		status = "OK"
	}
	fmt.Printf("run %s: %s (score %.2f)\n", result.RunID, status, result.Evaluation.OverallScore)
	if result.Evaluation.Summary != "" {
		fmt.Println(result.Evaluation.Summary)
	}
	if result.Output != "" {
		fmt.Println()
		fmt.Println(result.Output)
	}
}
