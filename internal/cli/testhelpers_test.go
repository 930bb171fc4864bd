package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/fmueller/whisperd/internal/config"
	"github.com/fmueller/whisperd/internal/server"
	"github.com/fmueller/whisperd/internal/whisper"
	"go.uber.org/zap"
)

type stubModel struct{}

func (stubModel) Transcribe(context.Context, string, whisper.Options) (whisper.Result, error) {
	return whisper.Result{Text: "stub"}, nil
}

type serveRecorder struct {
	loadedName   string
	loadedDevice whisper.Device
	loaderCfg    config.Config
	server       *server.Server
	addr         string
	serveCalls   int
}

// newTestApp wires fakes for the accelerator probe, loader and listener.
func newTestApp(rec *serveRecorder, accelerator bool, loadErr error) *appState {
	return &appState{
		lookupEnv:        func(string) (string, bool) { return "", false },
		probeAccelerator: func() bool { return accelerator },
		newLoader: func(cfg config.Config, _ *zap.Logger, _ bool) (whisper.Loader, error) {
			rec.loaderCfg = cfg
			return whisper.LoaderFunc(func(_ context.Context, name string, device whisper.Device) (whisper.Model, error) {
				rec.loadedName = name
				rec.loadedDevice = device
				if loadErr != nil {
					return nil, loadErr
				}
				return stubModel{}, nil
			}), nil
		},
		serveFn: func(_ context.Context, srv *server.Server, addr string) error {
			rec.serveCalls++
			rec.server = srv
			rec.addr = addr
			return nil
		},
	}
}

func runCommand(t *testing.T, app *appState, args []string) (stdout string, err error) {
	t.Helper()

	cmd := newRootCmd(app)
	outBuf := new(bytes.Buffer)
	cmd.SetOut(outBuf)
	cmd.SetErr(outBuf)
	cmd.SetArgs(append(args, "--json=false"))

	err = cmd.ExecuteContext(context.Background())
	return outBuf.String(), err
}
