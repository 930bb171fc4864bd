package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmueller/whisperd/internal/download"
	"github.com/stretchr/testify/require"
)

func TestEnsureAssetDownloadsMissingModel(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	var fetched download.Options
	resolved, err := EnsureAsset(context.Background(), "tiny", AssetOptions{
		ModelDir:     modelDir,
		AutoDownload: true,
		NoProgress:   true,
		Fetch: func(_ context.Context, opts download.Options) error {
			fetched = opts
			return os.WriteFile(opts.Destination, []byte("model"), 0o644)
		},
	})
	require.NoError(t, err)
	require.False(t, resolved.NeedsDownload)
	require.Equal(t, filepath.Join(modelDir, "ggml-tiny.bin"), fetched.Destination)
	require.Equal(t, resolved.SHA256, fetched.ExpectedSHA256)
	require.Contains(t, fetched.URL, "ggml-tiny.bin")
	require.True(t, fetched.NoProgress)
}

func TestEnsureAssetRefusesDownloadWhenDisabled(t *testing.T) {
	t.Parallel()

	_, err := EnsureAsset(context.Background(), "base", AssetOptions{
		ModelDir: t.TempDir(),
		Fetch: func(context.Context, download.Options) error {
			return errors.New("unexpected download")
		},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "whisperd setup --model base")
}

func TestEnsureAssetRedownloadsOnChecksumMismatch(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "ggml-base.bin"), []byte("corrupt"), 0o644))

	calls := 0
	_, err := EnsureAsset(context.Background(), "base", AssetOptions{
		ModelDir:     modelDir,
		AutoDownload: true,
		Verify:       true,
		Fetch: func(context.Context, download.Options) error {
			calls++
			return nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestEnsureAssetPropagatesDownloadFailure(t *testing.T) {
	t.Parallel()

	_, err := EnsureAsset(context.Background(), "small", AssetOptions{
		ModelDir:     t.TempDir(),
		AutoDownload: true,
		Fetch: func(context.Context, download.Options) error {
			return errors.New("connection reset")
		},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), `download model "small"`)
}

func TestEnsureAssetSkipsCustomPath(t *testing.T) {
	t.Parallel()

	custom := filepath.Join(t.TempDir(), "finetuned.bin")
	require.NoError(t, os.WriteFile(custom, []byte("x"), 0o644))

	resolved, err := EnsureAsset(context.Background(), custom, AssetOptions{
		Fetch: func(context.Context, download.Options) error {
			return errors.New("unexpected download")
		},
	})
	require.NoError(t, err)
	require.Equal(t, custom, resolved.Path)
}
