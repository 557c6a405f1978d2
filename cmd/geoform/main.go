package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"geoform/internal/api"
	"geoform/internal/config"
	"geoform/internal/debug"
	"geoform/internal/ui"
	"geoform/internal/ui/theme"
)

var errNotTerminal = errors.New("geoform needs an interactive terminal")

// Swapped out in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func main() {
	if err := config.Initialize(); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	timeoutDefault := config.GetInt(config.KeyRequestTimeoutSeconds)
	if timeoutDefault < 0 {
		timeoutDefault = 0
	}

	versionFlag := flag.Bool("version", false, "Print version information and exit")
	serverURLFlag := flag.String("server-url", config.GetString(config.KeyServerURL), "Base URL of the location/encryption backend")
	formActionFlag := flag.String("form-action", config.GetString(config.KeyFormAction), "Path or URL the registration form posts to")
	timeoutFlag := flag.Int("request-timeout-seconds", timeoutDefault, "Per-request timeout in seconds (0 disables it)")
	themeFlag := flag.String("theme", config.GetString(config.KeyTheme), "Color theme (dusk, nord, paper)")
	helpStyleFlag := flag.String("help-style", "rich", "Help overlay markdown style (rich, light, plain)")
	debugFlag := flag.Bool("debug", config.GetBool(config.KeyDebug), "Write a debug log to ~/.geoform/debug.log")
	flag.Parse()

	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	visited := map[string]struct{}{}
	flag.CommandLine.Visit(func(f *flag.Flag) {
		visited[f.Name] = struct{}{}
	})

	runtime := computeRuntimeOptions(runtimeFlags{
		serverURL:      serverURLFlag,
		formAction:     formActionFlag,
		timeoutSeconds: timeoutFlag,
		theme:          themeFlag,
		helpStyle:      helpStyleFlag,
		debug:          debugFlag,
	}, visited)

	if err := debug.Init(runtime.debug); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: debug log disabled: %v\n", err)
	}
	defer debug.Close()

	if !isTerminal() {
		fmt.Fprintf(os.Stderr, "Error: %v\n", errNotTerminal)
		os.Exit(1)
	}

	appCfg, err := buildAppConfig(runtime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := runProgram(appCfg, ui.NewApp, func(app *ui.App) programRunner {
		return tea.NewProgram(app, tea.WithAltScreen())
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type programRunner interface {
	Run() (tea.Model, error)
}

type programFactory func(*ui.App) programRunner

func runProgram(cfg ui.Config, builder func(ui.Config) (*ui.App, error), factory programFactory) error {
	app, err := builder(cfg)
	if err != nil {
		return fmt.Errorf("initialize UI: %w", err)
	}
	defer app.Close()
	if factory == nil {
		return fmt.Errorf("program factory is nil")
	}
	prog := factory(app)
	if prog == nil {
		return fmt.Errorf("program is nil")
	}
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("run UI: %w", err)
	}
	return nil
}

// buildAppConfig points one API client at the backend for options, the public
// key and submission.
func buildAppConfig(opts runtimeOptions) (ui.Config, error) {
	if opts.theme != "" && !theme.SetTheme(opts.theme) {
		debug.Warnf("main: unknown theme %q, keeping %s", opts.theme, theme.CurrentName())
	}

	client, err := api.NewClient(opts.serverURL,
		api.WithTimeout(opts.requestTimeout),
		api.WithUserAgent("geoform/"+Version),
		api.WithEndpoints(api.Endpoints{
			States:    config.GetString(config.KeyEndpointStates),
			Districts: config.GetString(config.KeyEndpointDistricts),
			Blocks:    config.GetString(config.KeyEndpointBlocks),
			PublicKey: config.GetString(config.KeyEndpointPublicKey),
		}),
	)
	if err != nil {
		return ui.Config{}, err
	}
	debug.Logf("main: backend %s, timeout %s", opts.serverURL, opts.requestTimeout)

	return ui.Config{
		Fetcher:        client,
		KeyFetcher:     client,
		Sink:           client,
		FormAction:     opts.formAction,
		FormMethod:     config.GetString(config.KeyFormMethod),
		RequestTimeout: opts.requestTimeout,
		HelpStyle:      opts.helpStyle,
		Version:        Version,
	}, nil
}

type runtimeFlags struct {
	serverURL      *string
	formAction     *string
	timeoutSeconds *int
	theme          *string
	helpStyle      *string
	debug          *bool
}

type runtimeOptions struct {
	serverURL      string
	formAction     string
	requestTimeout time.Duration
	theme          string
	helpStyle      string
	debug          bool
}

func computeRuntimeOptions(flags runtimeFlags, visited map[string]struct{}) runtimeOptions {
	requestTimeout := config.RequestTimeout()
	if flagWasExplicitlySet("request-timeout-seconds", visited) {
		requestTimeout = time.Duration(sanitizeTimeoutSeconds(*flags.timeoutSeconds)) * time.Second
	}

	serverURL := strings.TrimSpace(config.GetString(config.KeyServerURL))
	if flagWasExplicitlySet("server-url", visited) {
		serverURL = strings.TrimSpace(*flags.serverURL)
	}

	formAction := strings.TrimSpace(config.GetString(config.KeyFormAction))
	if flagWasExplicitlySet("form-action", visited) {
		formAction = strings.TrimSpace(*flags.formAction)
	}

	themeName := strings.TrimSpace(config.GetString(config.KeyTheme))
	if flagWasExplicitlySet("theme", visited) {
		themeName = strings.TrimSpace(*flags.theme)
	}

	helpStyle := "rich"
	if flags.helpStyle != nil {
		helpStyle = strings.TrimSpace(*flags.helpStyle)
	}

	debugEnabled := config.GetBool(config.KeyDebug)
	if flagWasExplicitlySet("debug", visited) {
		debugEnabled = *flags.debug
	}

	return runtimeOptions{
		serverURL:      serverURL,
		formAction:     formAction,
		requestTimeout: requestTimeout,
		theme:          themeName,
		helpStyle:      helpStyle,
		debug:          debugEnabled,
	}
}

func flagWasExplicitlySet(name string, visited map[string]struct{}) bool {
	if _, ok := visited[name]; ok {
		return true
	}
	f := flag.CommandLine.Lookup(name)
	if f == nil {
		return false
	}
	return f.Value.String() != f.DefValue
}

func sanitizeTimeoutSeconds(seconds int) int {
	if seconds < 0 {
		return 0
	}
	return seconds
}
