package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fmueller/whisperd/internal/config"
	"github.com/fmueller/whisperd/internal/download"
	"github.com/fmueller/whisperd/internal/logging"
	"github.com/fmueller/whisperd/internal/platform"
	"github.com/fmueller/whisperd/internal/server"
	"github.com/fmueller/whisperd/internal/version"
	"github.com/fmueller/whisperd/internal/whisper"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type appState struct {
	v          *viper.Viper
	cfg        config.Config
	noProgress bool

	logger *zap.Logger

	lookupEnv        func(string) (string, bool)
	probeAccelerator func() bool
	newLoader        func(cfg config.Config, logger *zap.Logger, noProgress bool) (whisper.Loader, error)
	serveFn          func(ctx context.Context, srv *server.Server, addr string) error
	fetch            func(ctx context.Context, opts download.Options) error
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&appState{})
}

func newRootCmd(app *appState) *cobra.Command {
	if app.v == nil {
		app.v = config.NewViper()
	}
	if app.lookupEnv == nil {
		app.lookupEnv = os.LookupEnv
	}
	if app.probeAccelerator == nil {
		app.probeAccelerator = platform.AcceleratorAvailable
	}
	if app.newLoader == nil {
		app.newLoader = newLoader
	}
	if app.serveFn == nil {
		app.serveFn = func(ctx context.Context, srv *server.Server, addr string) error {
			return srv.ListenAndServe(ctx, addr)
		}
	}

	cmd := &cobra.Command{
		Use:           "whisperd",
		Short:         "Serve speech-to-text transcription over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(app.v)
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.cfg = cfg
			app.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindConfigFlags(cmd, app)

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// bindConfigFlags registers persistent flags and binds them into viper so
// they take precedence over the environment.
func bindConfigFlags(cmd *cobra.Command, app *appState) {
	flags := cmd.PersistentFlags()
	flags.String("addr", "", "Listen address (default :8000, or :$PORT)")
	flags.String("engine", config.DefaultEngine, "Transcription engine: cli|openai")
	flags.String("model", config.DefaultModel, "Model name or model file path")
	flags.String("device", config.DefaultDevice, "Execution device: cpu|cuda|auto")
	flags.String("model-dir", "", "Directory where models are stored")
	flags.Bool("verbose", false, "Enable verbose logs")
	flags.Bool("json", true, "Emit JSON logs")
	flags.BoolVar(&app.noProgress, "no-progress", false, "Disable download progress bars")

	bindings := map[string]string{
		config.KeyAddr:     "addr",
		config.KeyEngine:   "engine",
		config.KeyModel:    "model",
		config.KeyDevice:   "device",
		config.KeyModelDir: "model-dir",
		config.KeyVerbose:  "verbose",
		config.KeyLogJSON:  "json",
	}
	for key, flag := range bindings {
		_ = app.v.BindPFlag(key, flags.Lookup(flag))
	}
}

func newLoader(cfg config.Config, logger *zap.Logger, noProgress bool) (whisper.Loader, error) {
	switch cfg.Engine {
	case config.EngineOpenAI:
		return &whisper.OpenAILoader{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Logger:  logger,
		}, nil
	default:
		modelDir, err := modelStorageDir(cfg.ModelDir)
		if err != nil {
			return nil, err
		}
		return &whisper.CLILoader{
			Executable: cfg.CLIPath,
			Assets: whisper.AssetOptions{
				ModelDir:     modelDir,
				AutoDownload: cfg.AutoDownload,
				NoProgress:   noProgress,
				Logger:       logger,
			},
			Threads: cfg.Threads,
			TempDir: cfg.TempDir,
			Logger:  logger,
		}, nil
	}
}

func modelStorageDir(override string) (string, error) {
	dir, err := platform.ResolveModelDir(override)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}
