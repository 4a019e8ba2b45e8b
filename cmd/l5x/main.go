// L5X Helper - Logix tag and data type browser
//
// Loads data type definitions and tags from a YAML project, lets them be
// browsed and edited in a terminal UI, and republishes member values via
// REST API, MQTT, Valkey and Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tnunnink/LogixHelper/api"
	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/kafka"
	"github.com/tnunnink/LogixHelper/logging"
	"github.com/tnunnink/LogixHelper/logix"
	"github.com/tnunnink/LogixHelper/mqtt"
	"github.com/tnunnink/LogixHelper/project"
	"github.com/tnunnink/LogixHelper/publish"
	"github.com/tnunnink/LogixHelper/tag"
	"github.com/tnunnink/LogixHelper/tui"
	"github.com/tnunnink/LogixHelper/valkey"
)

// Version is set at build time via -ldflags
var Version = "dev"

// preprocessLogDebugFlag handles --log-debug without a value by injecting "all" as the default.
func preprocessLogDebugFlag() {
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--log-debug" || arg == "-log-debug" {
			if i+1 >= len(args) || (len(args[i+1]) > 0 && args[i+1][0] == '-') {
				os.Args = append(os.Args[:i+2], append([]string{"all"}, os.Args[i+2:]...)...)
			}
			return
		}
		if strings.HasPrefix(arg, "--log-debug=") || strings.HasPrefix(arg, "-log-debug=") {
			return
		}
	}
}

// Command line flags
var (
	configPath  = flag.String("config", config.DefaultPath(), "Path to configuration file")
	showVersion = flag.Bool("version", false, "Show version and exit")
	noTUI       = flag.Bool("d", false, "Disable local TUI (headless mode)")
	noTUILong   = flag.Bool("no-tui", false, "Disable local TUI (headless mode)")
	namespace   = flag.String("namespace", "", "Set namespace (saved to config)")
	httpPort    = flag.Int("p", 0, "HTTP listen port (overrides config)")
	httpHost    = flag.String("host", "", "HTTP bind address (overrides config)")
	noAPI       = flag.Bool("no-api", false, "Disable REST API (ephemeral)")
	adminUser   = flag.String("admin-user", "", "Create/update admin user (saves to config)")
	adminPass   = flag.String("admin-pass", "", "Password for admin user (saves to config)")
	logFile     = flag.String("log", "", "Path to log file (optional)")
	logDebug    = flag.String("log-debug", "", "Enable debug logging to debug.log (filter: "+strings.Join(logging.KnownSubsystems(), ",")+")")
)

func main() {
	preprocessLogDebugFlag()

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: l5x [flags] [command]\n\nFlags:\n")
		flag.PrintDefaults()
		commandUsage(flag.CommandLine.Output())
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("l5x %s\n", Version)
		os.Exit(0)
	}

	headless := *noTUI || *noTUILong

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		if err := runCommand(os.Stdout, cfg, *configPath, flag.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Handle --namespace flag: overwrite config and save
	if *namespace != "" {
		if !config.IsValidNamespace(*namespace) {
			fmt.Fprintf(os.Stderr, "Error: invalid namespace '%s' (use alphanumeric, hyphen, underscore, dot)\n", *namespace)
			os.Exit(1)
		}
		cfg.Namespace = *namespace
		if err := cfg.Save(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Namespace set to '%s' and saved to config\n", *namespace)
	}

	// Override web config from flags (in memory only)
	if *httpPort != 0 {
		cfg.Web.Port = *httpPort
		cfg.Web.Enabled = true
	}
	if *httpHost != "" {
		cfg.Web.Host = *httpHost
	}
	if *noAPI {
		cfg.Web.Enabled = false
	}

	if *adminUser != "" && *adminPass != "" {
		if err := setAdminUser(cfg, *adminUser, *adminPass); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := cfg.Save(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Admin user '%s' configured for the API\n", *adminUser)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	run(cfg, headless)
}

// setAdminUser creates or updates an admin with a bcrypt hash of password.
func setAdminUser(cfg *config.Config, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	cfg.Lock()
	defer cfg.Unlock()
	if existing := cfg.FindWebUser(username); existing != nil {
		existing.PasswordHash = string(hash)
		existing.Role = config.RoleAdmin
		return nil
	}
	cfg.AddWebUser(config.WebUser{
		Username:     username,
		PasswordHash: string(hash),
		Role:         config.RoleAdmin,
	})
	return nil
}

// backend exposes the shared state to the API.
type backend struct {
	config     *config.Config
	configPath string
	project    *project.Project
	hub        *publish.Hub
}

func (b *backend) GetConfig() *config.Config    { return b.config }
func (b *backend) GetConfigPath() string        { return b.configPath }
func (b *backend) GetProject() *project.Project { return b.project }
func (b *backend) GetHub() *publish.Hub         { return b.hub }

// run is the unified startup flow for both TUI and headless modes.
func run(cfg *config.Config, headless bool) {
	store := tui.NewDebugLogStore(1000)

	p, err := project.Load(cfg, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading project: %v\n", err)
		os.Exit(1)
	}

	hub := publish.NewHub(p, cfg)

	mqttMgr := mqtt.NewManager(cfg.Namespace)
	mqttMgr.LoadFromConfig(cfg.MQTT)

	valkeyMgr := valkey.NewManager(cfg.Namespace)
	valkeyMgr.LoadFromConfig(cfg.Valkey)

	kafkaMgr := kafka.NewManager(cfg.Namespace)
	kafkaMgr.LoadFromConfig(cfg.Kafka)

	hub.AddSink(mqttMgr)
	hub.AddSink(valkeyMgr)
	hub.AddSink(kafkaMgr)

	// Write-backs from every broker go through the hub's access checks.
	mqttMgr.SetWriteHandler(hub.Write)
	valkeyMgr.SetWriteHandler(hub.Write)
	kafkaMgr.SetWriteHandler(hub.Write)

	// Bring newly connected brokers up to date.
	mqttMgr.SetOnConnectCallback(func() { hub.PublishAll() })
	valkeyMgr.SetOnConnectCallback(func() { hub.PublishAll() })

	var fileLogger *logging.FileLogger
	if *logFile != "" {
		fileLogger, err = logging.NewFileLogger(*logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open log file: %v\n", err)
		} else {
			store.SetFileLogger(fileLogger)
		}
	}

	// Debug output goes to the Debug tab, or to debug.log when requested.
	var debugLoggerFile *logging.DebugLogger
	filter := *logDebug
	if filter == "" {
		filter = cfg.Debug.Filter
	}
	if *logDebug != "" {
		debugLoggerFile, err = logging.NewDebugLogger("debug.log")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create debug.log: %v\n", err)
		} else {
			debugLoggerFile.SetFilter(filter)
			logging.SetGlobalDebugLogger(debugLoggerFile)
			store.Log("Debug logging enabled (filter: %s) - writing to debug.log", filter)
		}
	} else if !headless {
		storeLogger := logging.NewDebugWriter(store)
		storeLogger.SetFilter(filter)
		logging.SetGlobalDebugLogger(storeLogger)
	}

	logix.SetVerboseLogging(cfg.Debug.Verbose)
	tag.SetVerboseLogging(cfg.Debug.Verbose)

	hub.Start()

	var server *api.Server
	if cfg.Web.Enabled {
		server = api.NewServer(&backend{config: cfg, configPath: *configPath, project: p, hub: hub}, &cfg.Web)
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to start API server on port %d: %v\n", cfg.Web.Port, err)
			fmt.Fprintf(os.Stderr, "Continuing without HTTP server.\n")
			server = nil
		} else {
			fmt.Printf("REST API at %s\n", server.Address())
			if len(cfg.Web.Users) == 0 {
				fmt.Println("  No users configured: the API is open. Use --admin-user to require a login.")
			}
		}
	}

	go func() {
		if started := mqttMgr.StartAll(); started > 0 {
			store.Log("Started %d MQTT publishers", started)
		}
	}()
	go func() {
		if started := valkeyMgr.StartAll(); started > 0 {
			store.Log("Started %d Valkey publishers", started)
		}
	}()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if connected := kafkaMgr.ConnectEnabled(ctx); connected > 0 {
			store.Log("Connected %d Kafka clusters", connected)
			hub.PublishAll()
		}
	}()

	shutdown := func() {
		hub.Stop()
		mqttMgr.StopAll()
		valkeyMgr.StopAll()
		kafkaMgr.StopAll()
		if server != nil {
			server.Stop()
		}
	}

	if headless {
		fmt.Printf("Loaded %d types and %d tags. Running in headless mode. Press Ctrl+C to stop.\n",
			len(p.Types()), len(p.Tags()))

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		fmt.Printf("\nReceived %v, shutting down...\n", sig)

		shutdownDone := make(chan struct{})
		go func() {
			shutdown()
			close(shutdownDone)
		}()

		select {
		case <-shutdownDone:
		case <-time.After(2 * time.Second):
		}
	} else {
		app := tui.NewApp(cfg, *configPath, p, hub, tui.Brokers{
			MQTT:   mqttMgr,
			Valkey: valkeyMgr,
			Kafka:  kafkaMgr,
		}, store)
		app.SetOnShutdown(shutdown)

		if err := app.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if fileLogger != nil {
		fileLogger.Close()
	}
	if debugLoggerFile != nil {
		debugLoggerFile.Close()
	}
	fmt.Println("Stopped")
}
