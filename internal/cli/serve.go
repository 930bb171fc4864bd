package cli

import (
	"context"
	"fmt"

	"github.com/fmueller/whisperd/internal/config"
	"github.com/fmueller/whisperd/internal/server"
	"github.com/fmueller/whisperd/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve the transcription API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}
}

// runServe loads the model before the listener opens so that no request can
// observe a missing handle in production.
func (a *appState) runServe(ctx context.Context) error {
	cfg := a.cfg
	logger := a.log()

	accelerator := a.probeAccelerator()
	device := whisper.ResolveDevice(cfg.Device, accelerator)
	env := config.EnvDump(cfg, a.lookupEnv)

	logger.Info("loading model",
		zap.String("engine", cfg.Engine),
		zap.String("model", cfg.Model),
		zap.String("device", string(device)),
		zap.Bool("cuda_available", accelerator),
	)

	model, err := a.loadModel(ctx, cfg, device)
	if err != nil {
		logger.Error("failed to load model", zap.Error(err), zap.Any("env", env))
		return err
	}

	srv := server.New(server.Options{
		Model:                model,
		ModelName:            cfg.Model,
		Engine:               cfg.Engine,
		Device:               device,
		AcceleratorAvailable: accelerator,
		Env:                  env,
		TempDir:              cfg.TempDir,
		MaxUploadBytes:       cfg.MaxUploadBytes,
		SilenceGate:          cfg.SilenceGate,
		SilenceThresholdDBFS: cfg.SilenceThresholdDBFS,
		CORSOrigins:          cfg.CORSOrigins,
		Logger:               logger,
	})
	return a.serveFn(ctx, srv, cfg.Addr)
}

func (a *appState) loadModel(ctx context.Context, cfg config.Config, device whisper.Device) (whisper.Model, error) {
	loader, err := a.newLoader(cfg, a.log(), a.noProgress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", whisper.ErrModelLoad, err)
	}

	model, err := loader.Load(ctx, cfg.Model, device)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("%w: loader returned no model", whisper.ErrModelLoad)
	}
	return model, nil
}
