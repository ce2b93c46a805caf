package console

import (
	"browser-agent/internal/config"
	"browser-agent/internal/entity"
	"browser-agent/internal/usecase"
	"browser-agent/pkg/logg"
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const divider = "──────────────────────────────────────────────────"

type Interface struct {
	config   *config.Config
	logger   *zap.Logger
	usecase  *usecase.Service
	sigChan  chan os.Signal
	stopping bool

	mu         sync.Mutex
	cancelTask context.CancelFunc

	lastTask   string
	lastResult *entity.ActionResult
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewInterface(params Params) *Interface {
	return &Interface{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase: params.Usecase,
		sigChan: make(chan os.Signal, 1),
	}
}

func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	signal.Notify(i.sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	// The fx runtime receives the same signal and begins shutdown; our job
	// here is only to unblock any in-flight task so OnStop is not held up.
	go func() {
		<-i.sigChan
		fmt.Println("\n\n⚠️  Interrupt received, stopping...")
		i.stopping = true
		i.cancelRunningTask()
	}()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		if i.stopping {
			break
		}

		fmt.Print("\n> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())

		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if err.Error() == "exit" {
				break
			}

			i.logger.Error("Command error", zap.Error(err))
			fmt.Printf("Error: %v\n", err)
		}
	}

	return nil
}

func (i *Interface) Stop() error {
	if i.stopping {
		return nil
	}

	i.stopping = true
	i.logger.Info("Stopping console interface")
	i.cancelRunningTask()

	return nil
}

func (i *Interface) cancelRunningTask() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancelTask != nil {
		i.cancelTask()
		i.cancelTask = nil
	}
}

func (i *Interface) handleCommand(input string) error {
	fields := strings.Fields(input)

	switch strings.ToLower(fields[0]) {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		fmt.Println("Shutting down...")

		return fmt.Errorf("exit")
	case "url":
		return i.printURL()
	case "screenshot":
		filename := ""
		if len(fields) > 1 {
			filename = fields[1]
		}

		return i.takeScreenshot(filename)
	case "status":
		i.printStatus()

		return nil
	case "history":
		i.printHistory()

		return nil
	case "eval":
		return i.evaluateLastTask()
	case "config":
		i.printConfig()

		return nil
	case "serve":
		fmt.Println("Serve mode is not yet implemented.")

		return nil
	default:
		return i.executeTask(input)
	}
}

func (i *Interface) executeTask(task string) error {
	fmt.Printf("\n🤖 Starting task: %s\n", task)
	fmt.Println(divider)

	ctx, cancel := context.WithCancel(context.Background())

	i.mu.Lock()
	i.cancelTask = cancel
	i.mu.Unlock()

	result := i.usecase.Tasks.ExecuteTask(ctx, task)

	i.mu.Lock()
	i.cancelTask = nil
	i.mu.Unlock()

	cancel()

	i.lastTask = task
	i.lastResult = &result

	fmt.Println("\n" + divider)

	if result.Success {
		fmt.Printf("✅ Task completed successfully!\n")
		i.printData(result.Data)

		if result.ScreenshotPath != "" {
			fmt.Printf("Screenshot: %s\n", result.ScreenshotPath)
		}
	} else {
		fmt.Printf("❌ Task failed: %s\n", result.Error)
	}

	return nil
}

func (i *Interface) printData(data map[string]any) {
	if len(data) == 0 {
		return
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		fmt.Printf("  %s: %v\n", key, data[key])
	}
}

func (i *Interface) printURL() error {
	url, err := i.usecase.Browser.CurrentURL(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Current URL: %s\n", url)

	return nil
}

func (i *Interface) takeScreenshot(filename string) error {
	if filename == "" {
		filename = fmt.Sprintf("manual_%d.png", time.Now().Unix())
	}

	path := filename
	if !filepath.IsAbs(path) {
		path = filepath.Join(i.config.BrowserConfig.ScreenshotDir, filename)
	}

	if err := i.usecase.Browser.Screenshot(context.Background(), path); err != nil {
		return err
	}

	fmt.Printf("Screenshot saved: %s\n", path)

	return nil
}

func (i *Interface) printStatus() {
	status := i.usecase.Tasks.Status()

	fmt.Printf("Running:      %t\n", status.Running)

	if status.TaskID != "" {
		fmt.Printf("Task ID:      %s\n", status.TaskID)
		fmt.Printf("Task:         %s\n", status.Task)
	}

	if status.PlanSize > 0 {
		fmt.Printf("Plan:         step %d of %d\n", status.PlanStep+1, status.PlanSize)
	}

	fmt.Printf("History:      %d entries\n", status.HistoryLen)

	if status.LastAction != "" {
		fmt.Printf("Last action:  %s\n", status.LastAction)
	}
}

func (i *Interface) printHistory() {
	entries := i.usecase.Tasks.History()
	if len(entries) == 0 {
		fmt.Println("No actions recorded yet.")

		return
	}

	for n, entry := range entries {
		outcome := "ok"
		if !entry.Result.Success {
			outcome = "failed: " + entry.Result.Error
		}

		fmt.Printf("%2d. %s  %s (%s)\n", n+1, entry.Timestamp.Format("15:04:05"), entry.Action.String(), outcome)
	}
}

func (i *Interface) evaluateLastTask() error {
	if i.lastResult == nil {
		fmt.Println("No task executed yet.")

		return nil
	}

	fmt.Println("Evaluating task completion...")

	eval := i.usecase.Tasks.EvaluateCompletion(context.Background(), i.lastTask, *i.lastResult)

	if eval.Completed {
		fmt.Printf("✅ Task appears complete: %s\n", eval.Evidence)

		return nil
	}

	fmt.Printf("❌ Task looks incomplete: %s\n", eval.Evidence)

	for _, step := range eval.NextSteps {
		fmt.Printf("   next: %s\n", step)
	}

	return nil
}

func (i *Interface) printConfig() {
	fmt.Printf("Model:          %s\n", i.config.AIConfig.Model)
	fmt.Printf("Headless:       %t\n", i.config.BrowserConfig.Headless)
	fmt.Printf("Viewport:       %dx%d\n", i.config.BrowserConfig.WindowWidth, i.config.BrowserConfig.WindowHeight)
	fmt.Printf("Element limit:  %d\n", i.config.AgentConfig.ElementLimit)
	fmt.Printf("Max attempts:   %d\n", i.config.AgentConfig.MaxAttempts)
	fmt.Printf("Screenshots:    %s\n", i.config.BrowserConfig.ScreenshotDir)
	fmt.Printf("Escalation:     %s\n", i.config.AgentConfig.EscalationMode)
}

func (i *Interface) printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║            🤖  AI Browser Agent  🌐                       ║
║                                                           ║
║  Autonomous web browser automation powered by Claude AI  ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
}

func (i *Interface) printHelp() {
	help := `
Available commands:
  help, h            - Show this help message
  url                - Print the current page URL
  screenshot [file]  - Capture the current page
  status             - Show the current session state
  history            - Show recorded actions
  eval               - Ask the model whether the last task is complete
  config             - Show the active configuration
  exit, quit, q      - Exit the application

Anything else is treated as a task in natural language:
  Examples:
    - Go to https://news.ycombinator.com
    - Search for wireless headphones and open the first result
    - Fill out the signup form, then submit it

During a multi-step plan, a failed step asks you to skip, retry,
abort, or type a replacement task.
`
	fmt.Println(help)
}
