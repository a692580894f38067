// Package main provides the webpilot command: workflow execution from the
// command line and the HTTP automation API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/webpilot-ai/webpilot/pkg/browser"
	"github.com/webpilot-ai/webpilot/pkg/config"
	"github.com/webpilot-ai/webpilot/pkg/executor"
	"github.com/webpilot-ai/webpilot/pkg/feedback"
	"github.com/webpilot-ai/webpilot/pkg/llm"
	"github.com/webpilot-ai/webpilot/pkg/llm/openai"
	"github.com/webpilot-ai/webpilot/pkg/report"
	"github.com/webpilot-ai/webpilot/pkg/resolver"
	"github.com/webpilot-ai/webpilot/pkg/server"
	"github.com/webpilot-ai/webpilot/pkg/signin"
	"github.com/webpilot-ai/webpilot/pkg/types"
	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	var err error
	switch os.Args[1] {
	case "run":
		err = runWorkflow(ctx, os.Args[2:])
	case "serve":
		err = serve(ctx, os.Args[2:])
	case "version", "-version", "--version":
		fmt.Printf("webpilot v%s\n", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		cancel()
		os.Exit(2)
	}

	if err != nil {
		cancel() // Cancel context before exiting
		log.Printf("Execution failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

func usage() {
	fmt.Fprintf(os.Stderr, "webpilot - Browser Workflow Automation Engine\n\n")
	fmt.Fprintf(os.Stderr, "Usage: webpilot <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run      Execute a workflow file and write its report\n")
	fmt.Fprintf(os.Stderr, "  serve    Start the HTTP automation API\n")
	fmt.Fprintf(os.Stderr, "  version  Show version and exit\n\n")
	fmt.Fprintf(os.Stderr, "Examples:\n")
	fmt.Fprintf(os.Stderr, "  # Execute a workflow headless and print the ending note\n")
	fmt.Fprintf(os.Stderr, "  webpilot run -workflow steps.json -task \"Book the usual flight\"\n\n")
	fmt.Fprintf(os.Stderr, "  # Serve the API on the default port\n")
	fmt.Fprintf(os.Stderr, "  webpilot serve -addr :8791\n\n")
	fmt.Fprintf(os.Stderr, "Run 'webpilot <command> -h' for command options.\n")
}

// runWorkflow executes a workflow file end to end and writes its report
// artifacts. The process exits non-zero when the run did not succeed.
func runWorkflow(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("run", flag.ExitOnError)
	workflowFile := flags.String("workflow", "", "Path to the workflow JSON file (required)")
	task := flags.String("task", "", "Task description for the report")
	configFile := flags.String("config", "", "Path to configuration file (YAML)")
	headless := flags.Bool("headless", true, "Run the browser without a visible window")
	outDir := flags.String("out", "", "Artifact output directory (default from config)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *workflowFile == "" {
		flags.Usage()
		return fmt.Errorf("-workflow is required")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *outDir != "" {
		cfg.Report.OutputDir = *outDir
	}

	data, err := os.ReadFile(*workflowFile)
	if err != nil {
		return fmt.Errorf("failed to read workflow file: %w", err)
	}
	wf, err := workflow.ParseWorkflow(data)
	if err != nil {
		return err
	}
	if *task == "" {
		*task = wf.Task
	}

	provider := buildProvider(cfg)
	stepExecutor, err := buildStepExecutor(cfg, provider)
	if err != nil {
		return err
	}

	manager := browser.NewSessionManager()
	manager.SetMaxSessions(cfg.Browser.MaxSessions)
	manager.SetIdleTimeout(time.Duration(cfg.Browser.IdleTimeout) * time.Second)
	if err := manager.Initialize(); err != nil {
		return fmt.Errorf("failed to start browser driver: %w", err)
	}
	defer func() {
		if shutdownErr := manager.Shutdown(); shutdownErr != nil {
			log.Printf("browser shutdown: %v", shutdownErr)
		}
	}()

	session := executor.NewSession(wf.Steps)
	sessionOpts := browser.SessionOptions{
		Headless: *headless,
		Viewport: &browser.Viewport{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
		Timeout: cfg.Browser.StepTimeoutMs,
	}
	page, err := manager.StartSession(session.ID(), sessionOpts)
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}

	pageProvider := func(ctx context.Context) (browser.Page, error) {
		if err := manager.CloseSession(session.ID()); err != nil {
			return nil, err
		}
		return manager.StartSession(session.ID(), sessionOpts)
	}
	orch := executor.NewOrchestrator(session, page, stepExecutor,
		executor.WithPageProvider(pageProvider))

	total := session.StepCount()
	orch.OnProgress(func(event *types.ProgressEvent) {
		if event.Type == types.EventTypeStepComplete {
			log.Printf("Step %d/%d: %s", event.StepIndex+1, total, event.Status)
		}
	})

	log.Printf("Starting workflow execution...")
	log.Printf("Workflow: %s (%d steps)", *workflowFile, total)
	if err := orch.Run(ctx); err != nil {
		return err
	}

	compiler := report.NewCompiler(report.WithProvider(reportProvider(cfg, provider)))
	rep := compiler.Compile(ctx, session, *task)

	writer := report.NewArtifactWriter(cfg.Report.OutputDir)
	if err := writer.WriteAll(rep, session.Results()); err != nil {
		log.Printf("artifact write failed: %v", err)
	} else {
		log.Printf("Report written to %s", writer.Dir(rep.ExecutionID))
	}

	fmt.Println(rep.EndingNote)

	switch session.Status() {
	case executor.SessionSuccess:
		return nil
	case executor.SessionStopped:
		return fmt.Errorf("workflow stopped before completion")
	default:
		return fmt.Errorf("workflow failed: %s", firstFailureMessage(session))
	}
}

// serve runs the HTTP API until the context is cancelled.
func serve(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", "", "HTTP listen address (default from config)")
	configFile := flags.String("config", "", "Path to configuration file (YAML)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *addr == "" {
		*addr = cfg.Server.Addr
	}

	provider := buildProvider(cfg)
	stepExecutor, err := buildStepExecutor(cfg, provider)
	if err != nil {
		return err
	}

	manager := browser.NewSessionManager()
	manager.SetMaxSessions(cfg.Browser.MaxSessions)
	manager.SetIdleTimeout(time.Duration(cfg.Browser.IdleTimeout) * time.Second)
	if err := manager.Initialize(); err != nil {
		return fmt.Errorf("failed to start browser driver: %w", err)
	}
	defer func() {
		if shutdownErr := manager.Shutdown(); shutdownErr != nil {
			log.Printf("browser shutdown: %v", shutdownErr)
		}
	}()

	serverOpts := []server.Option{
		server.WithDefaultHeadless(cfg.Browser.Headless),
		server.WithArtifactWriter(report.NewArtifactWriter(cfg.Report.OutputDir)),
	}

	store, err := openFeedbackStore(cfg.Feedback.DatabasePath)
	if err != nil {
		// The engine still runs without history; only the feedback
		// endpoints degrade.
		log.Printf("feedback store unavailable: %v", err)
	} else {
		defer store.Close()
		serverOpts = append(serverOpts, server.WithFeedbackStore(store))
	}

	compiler := report.NewCompiler(report.WithProvider(reportProvider(cfg, provider)))
	srv := server.New(
		server.NewBrowserFactory(manager, cfg.Browser),
		stepExecutor,
		compiler,
		serverOpts...,
	)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("webpilot API listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// buildProvider creates the text-generation provider, or nil when no API
// key is configured. Everything that uses it degrades cleanly without one.
func buildProvider(cfg *config.Config) llm.Provider {
	if !cfg.Report.UseModel && !cfg.Resolver.UseModel {
		return nil
	}

	opts := []openai.ProviderOption{openai.WithModel(cfg.Model.Model)}
	if cfg.Model.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Model.BaseURL))
	}

	provider, err := openai.NewProvider(cfg.Model.APIKey(), opts...)
	if err != nil {
		log.Printf("model provider unavailable: %v (reports fall back to templates)", err)
		return nil
	}
	return provider
}

// reportProvider gates the provider on the report config.
func reportProvider(cfg *config.Config, provider llm.Provider) llm.Provider {
	if !cfg.Report.UseModel {
		return nil
	}
	return provider
}

// buildStepExecutor assembles the resolver and sign-in detector from config.
func buildStepExecutor(cfg *config.Config, provider llm.Provider) (*executor.StepExecutor, error) {
	resolverOpts := []resolver.Option{
		resolver.WithThreshold(cfg.Resolver.ConfidenceThreshold),
	}
	if cfg.Resolver.UseModel && provider != nil {
		resolverOpts = append(resolverOpts, resolver.WithProvider(provider))
	}
	res := resolver.New(resolverOpts...)

	executorOpts := []executor.ExecutorOption{}
	if cfg.SignIn.Enabled {
		supplier := signin.NewEnvCredentialSupplier(cfg.SignIn.EmailEnv, cfg.SignIn.PasswordEnv)
		detector, err := signin.NewDetector(supplier,
			signin.WithScanTimeout(time.Duration(cfg.SignIn.ScanTimeoutMs)*time.Millisecond),
			signin.WithFieldTimeout(time.Duration(cfg.SignIn.FieldTimeoutMs)*time.Millisecond),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create sign-in detector: %w", err)
		}
		executorOpts = append(executorOpts, executor.WithSignInDetector(detector))
	}

	return executor.NewStepExecutor(res, executorOpts...), nil
}

// openFeedbackStore opens the SQLite store, creating its directory first.
func openFeedbackStore(dbPath string) (*feedback.Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create feedback directory: %w", err)
		}
	}
	return feedback.NewStore(dbPath)
}

// firstFailureMessage finds the message of the step that halted the run.
func firstFailureMessage(session *executor.Session) string {
	for _, result := range session.Results() {
		if result != nil && !result.Succeeded() {
			return result.Message
		}
	}
	return "no failing step recorded"
}
