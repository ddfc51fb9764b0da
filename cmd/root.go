package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/barangay/internal/api"
	"github.com/zjrosen/barangay/internal/app"
	"github.com/zjrosen/barangay/internal/config"
	"github.com/zjrosen/barangay/internal/draft"
	"github.com/zjrosen/barangay/internal/flags"
	"github.com/zjrosen/barangay/internal/log"
	"github.com/zjrosen/barangay/internal/notify"
	"github.com/zjrosen/barangay/internal/tracing"
	"github.com/zjrosen/barangay/internal/watcher"
)

func init() {
	// Query the terminal background before Bubble Tea owns stdin, otherwise
	// the OSC 11 reply can leak into text inputs.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const (
	envPrefix         = "BARANGAY"
	localConfigPath   = ".barangay/config.yaml"
	debugLogPath      = ".barangay/debug.log"
	defaultConfigName = "config"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "barangay",
	Short: "Register and manage barangay officials",
	Long: `A terminal console for registering barangay officials from the resident
directory. Residents are searched by name, checked against existing active
registrations and saved to the barangay API.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .barangay/config.yaml or ~/.config/barangay/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false,
		"write a debug log to .barangay/debug.log and enable the log overlay (ctrl+x)")
	rootCmd.PersistentFlags().String("draft-backend", "",
		"draft store: sqlite, redis or memory")
	rootCmd.Flags().String("api-url", "", "barangay API base URL")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("draft.backend", rootCmd.PersistentFlags().Lookup("draft-backend"))
	_ = viper.BindPFlag("api.base_url", rootCmd.Flags().Lookup("api-url"))
}

// initConfig resolves configuration from flags, BARANGAY_* environment
// variables (optionally from .env), the config file and defaults.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn(log.CatConfig, "Failed to load .env", "error", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .barangay/config.yaml (current directory)
		// 2. ~/.config/barangay/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "barangay"))
			viper.SetConfigName(defaultConfigName)
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if writeErr := config.WriteDefaultConfig(localConfigPath); writeErr == nil {
				viper.SetConfigFile(localConfigPath)
				_ = viper.ReadInConfig()
			}
		} else {
			log.Warn(log.CatConfig, "Failed to read config", "error", err)
		}
	}

	cfg, cfgErr = config.Load(viper.GetViper())
}

// configPath is the file "config set" edits.
func configPath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	if cfgFile != "" {
		return cfgFile
	}
	return localConfigPath
}

func debugEnabled() bool {
	return viper.GetBool("debug")
}

func runApp(cmd *cobra.Command, _ []string) error {
	if cfgErr != nil {
		return fmt.Errorf("invalid configuration: %w", cfgErr)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	debug := debugEnabled()
	if debug {
		if err := os.MkdirAll(filepath.Dir(debugLogPath), 0o750); err == nil {
			if closeLog, err := log.Init(debugLogPath); err == nil {
				defer closeLog()
				log.SetMinLevel(log.ParseLevel(cfg.LogLevel))
			}
		}
	}
	log.Info(log.CatConfig, "Starting barangay", "version", version, "config", viper.ConfigFileUsed())

	if viper.ConfigFileUsed() != "" {
		viper.OnConfigChange(func(e fsnotify.Event) {
			log.Info(log.CatConfig, "Config file changed, restart to apply", "path", e.Name, "op", e.Op.String())
		})
		viper.WatchConfig()
	}

	provider, err := tracing.NewProvider(tracingConfig(cfg.Tracing))
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	client := newAPIClient(cfg.API, provider)
	features := flags.New(cfg.Flags)

	services := app.Services{
		Backend: client,
		Tracer:  provider.Tracer(),
		Flags:   features,
	}

	store, err := draft.Open(ctx, cfg.Draft)
	if err != nil {
		// Drafts are optional; the form reports them as unavailable.
		log.ErrorErr(log.CatDraft, "Failed to open draft store", err, "backend", cfg.Draft.Backend)
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: drafts disabled: %v\n", err)
	} else {
		defer func() { _ = store.Close() }()
		services.Drafts = store
	}

	if services.Drafts != nil && cfg.Draft.Backend == config.DraftBackendSQLite &&
		features.Enabled(flags.FlagDraftIndicator) {
		if w, err := watcher.New(watcher.DefaultConfig(cfg.Draft.SQLitePath)); err == nil {
			if err := w.Start(); err == nil {
				defer func() { _ = w.Stop() }()
				services.Watcher = w
			} else {
				_ = w.Stop()
			}
		}
	}

	notes := notify.NewService(cfg.Registration.ToastDuration)
	defer notes.Close()
	services.Notifier = notes

	model := app.New(ctx, cfg, services, debug)
	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if features.Enabled(flags.FlagMouse) {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(model, opts...)

	final, err := p.Run()
	if m, ok := final.(app.Model); ok {
		m.Close()
	} else {
		model.Close()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

func tracingConfig(c config.TracingConfig) tracing.Config {
	return tracing.Config{
		Enabled:      c.Enabled,
		Exporter:     c.Exporter,
		FilePath:     c.FilePath,
		OTLPEndpoint: c.OTLPEndpoint,
		SampleRate:   c.SampleRate,
		ServiceName:  tracing.DefaultServiceName,
	}
}

func newAPIClient(c config.APIConfig, provider *tracing.Provider) *api.Client {
	return api.New(api.Options{
		BaseURL:        c.BaseURL,
		Token:          c.Token,
		Timeout:        c.Timeout,
		RetryCount:     c.RetryCount,
		SearchCacheTTL: c.SearchCacheTTL,
		Tracer:         provider.Tracer(),
	})
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
