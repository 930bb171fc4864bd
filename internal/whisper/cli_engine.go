package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/fmueller/whisperd/internal/platform"
	"go.uber.org/zap"
)

// CLILoader loads models for the whisper.cpp command line engine. Loading
// resolves the engine executable and makes sure the ggml model file is on
// disk; every transcription then runs one engine process against it.
type CLILoader struct {
	// Executable overrides engine discovery when set.
	Executable string
	Assets     AssetOptions
	Threads    int
	TempDir    string
	Logger     *zap.Logger

	lookPath func(string) (string, error)
	self     func() (string, error)
}

func (l *CLILoader) Load(ctx context.Context, name string, device Device) (Model, error) {
	logger := l.log()

	exe, err := l.resolveExecutable()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	assetOpts := l.Assets
	if assetOpts.Logger == nil {
		assetOpts.Logger = logger
	}
	asset, err := EnsureAsset(ctx, name, assetOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	logger.Info("whisper model ready",
		zap.String("engine", exe),
		zap.String("model", asset.Name),
		zap.String("path", asset.Path),
		zap.String("device", string(device)),
	)

	return &CLIModel{
		Executable: exe,
		ModelPath:  asset.Path,
		Device:     device,
		Threads:    l.Threads,
		TempDir:    l.TempDir,
		Logger:     logger,
	}, nil
}

func (l *CLILoader) resolveExecutable() (string, error) {
	if override := strings.TrimSpace(l.Executable); override != "" {
		if err := ensureExecutable(override); err != nil {
			return "", fmt.Errorf("whisper-cli path is not executable: %w", err)
		}
		return override, nil
	}

	self := l.self
	if self == nil {
		self = os.Executable
	}
	if selfExe, err := self(); err == nil {
		if path, err := ResolveBundledEnginePath(selfExe); err == nil {
			return path, nil
		}
	}

	lookPath := l.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(engineBinaryName())
	if err != nil {
		return "", fmt.Errorf("whisper engine %s not found next to the binary or in PATH; set WHISPER_CLI_PATH", engineBinaryName())
	}
	return path, nil
}

func (l *CLILoader) log() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func ResolveBundledEnginePath(selfExecutable string) (string, error) {
	for _, candidate := range EnginePathCandidates(selfExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("bundled whisper engine not found near %s", selfExecutable)
}

func EnginePathCandidates(selfExecutable string) []string {
	binDir := filepath.Dir(selfExecutable)
	engineName := engineBinaryName()

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, "packaging", "whisper", platform.CurrentRuntime().Target(), engineName),
		filepath.Join(binDir, engineName),
	}
}

// CLIModel runs whisper-cli once per transcription against a resolved model
// file. It holds no mutable state and is safe for concurrent use.
type CLIModel struct {
	Executable string
	ModelPath  string
	Device     Device
	Threads    int
	TempDir    string
	Logger     *zap.Logger
}

// Transcribe ignores opts.HalfPrecision: GPU builds of whisper.cpp already
// run in f16 and the CLI offers no switch for it.
func (m *CLIModel) Transcribe(ctx context.Context, audioPath string, opts Options) (Result, error) {
	if strings.TrimSpace(audioPath) == "" {
		return Result{}, fmt.Errorf("%w: audio path is required", ErrTranscription)
	}

	outDir, err := os.MkdirTemp(m.TempDir, "whisperd-out-")
	if err != nil {
		return Result{}, fmt.Errorf("%w: create output directory: %w", ErrTranscription, err)
	}
	defer os.RemoveAll(outDir)

	outBase := filepath.Join(outDir, "transcript")
	args := m.args(audioPath, outBase, opts)

	cmd := exec.CommandContext(ctx, m.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	m.log().Debug("running whisper engine", zap.String("engine", m.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrTranscription, ctxErr)
		}
		return Result{}, fmt.Errorf("%w: %w", ErrTranscription, describeEngineFailure(m.Executable, err, stderr.String()))
	}

	content, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return Result{}, fmt.Errorf("%w: read whisper output: %w", ErrTranscription, err)
	}

	return Result{Text: string(content), Language: opts.Language}, nil
}

func (m *CLIModel) args(audioPath, outBase string, opts Options) []string {
	args := []string{"-m", m.ModelPath, "-f", audioPath, "-nt", "-otxt", "-of", outBase}

	// whisper-cli defaults to English; an omitted language means detect.
	lang := strings.ToLower(strings.TrimSpace(opts.Language))
	if lang == "" {
		lang = "auto"
	}
	args = append(args, "-l", lang)

	if m.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(m.Threads))
	}
	if m.Device == DeviceCPU {
		args = append(args, "-ng")
	}
	return args
}

func (m *CLIModel) log() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

func describeEngineFailure(exe string, runErr error, stderr string) error {
	errText := strings.TrimSpace(stderr)
	if isMissingSharedLibraryError(errText) {
		return fmt.Errorf("whisper engine at %s is missing required shared libraries (%s)", exe, errText)
	}
	if isIllegalInstructionError(errText) || isIllegalInstructionError(runErr.Error()) {
		return errors.New("whisper engine crashed with an illegal CPU instruction; " +
			"set WHISPER_CLI_PATH to a whisper-cli binary built for this CPU")
	}
	if errText == "" {
		return fmt.Errorf("whisper-cli: %w", runErr)
	}
	return fmt.Errorf("whisper-cli: %w (%s)", runErr, errText)
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}
	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}
	return false
}

func isIllegalInstructionError(text string) bool {
	return strings.Contains(strings.ToLower(text), "illegal instruction")
}
