package whisper

import (
	"context"
	"fmt"

	"github.com/fmueller/whisperd/internal/download"
	"go.uber.org/zap"
)

type AssetOptions struct {
	ModelDir     string
	AutoDownload bool
	// Verify re-hashes an existing named model and downloads a fresh copy on
	// mismatch. Startup skips it; the setup command enables it.
	Verify     bool
	NoProgress bool
	Logger     *zap.Logger
	Fetch      func(ctx context.Context, opts download.Options) error
}

// EnsureAsset resolves ref and downloads the model file when it is a named
// model that is missing from disk.
func EnsureAsset(ctx context.Context, ref string, opts AssetOptions) (ResolvedAsset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fetch := opts.Fetch
	if fetch == nil {
		fetch = download.DownloadFile
	}

	resolved, err := ResolveAsset(ref, opts.ModelDir)
	if err != nil {
		return ResolvedAsset{}, err
	}
	if resolved.IsCustomPath {
		return resolved, nil
	}

	if !resolved.NeedsDownload && opts.Verify && resolved.SHA256 != "" {
		if err := download.VerifyFileChecksum(resolved.Path, resolved.SHA256); err != nil {
			logger.Warn("model checksum verification failed; downloading fresh copy", zap.String("model", resolved.Name), zap.Error(err))
			resolved.NeedsDownload = true
		}
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !opts.AutoDownload {
		return ResolvedAsset{}, fmt.Errorf("model %q is missing at %s; run `whisperd setup --model %s` or set WHISPER_AUTO_DOWNLOAD=true", resolved.Name, resolved.Path, resolved.Name)
	}

	logger.Info("downloading model", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	if err := fetch(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		NoProgress:     opts.NoProgress,
		Logger:         logger,
	}); err != nil {
		return ResolvedAsset{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}
