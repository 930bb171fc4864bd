package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sha256Hex(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func TestVerifyFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "payload.bin")
	payload := []byte("whisperd")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	require.NoError(t, VerifyFileChecksum(path, sha256Hex(payload)))
	require.NoError(t, VerifyFileChecksum(path, ""))
	require.Error(t, VerifyFileChecksum(path, "deadbeef"))
}

func TestDownloadFileVerifiesChecksum(t *testing.T) {
	t.Parallel()

	payload := []byte("ggml-model-bytes")
	var userAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.UserAgent())
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "models", "ggml-tiny.bin")
	err := DownloadFile(context.Background(), Options{
		URL:            server.URL + "/ggml-tiny.bin",
		Destination:    destination,
		ExpectedSHA256: sha256Hex(payload),
		NoProgress:     true,
		Retries:        1,
	})
	require.NoError(t, err)

	onDisk, err := os.ReadFile(destination)
	require.NoError(t, err)
	require.Equal(t, payload, onDisk)
	require.Contains(t, userAgent.Load(), "whisperd/")

	_, err = os.Stat(destination + ".part")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDownloadFileChecksumMismatchLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("tampered"))
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "ggml-base.bin")
	err := DownloadFile(context.Background(), Options{
		URL:            server.URL,
		Destination:    destination,
		ExpectedSHA256: sha256Hex([]byte("original")),
		NoProgress:     true,
		Retries:        2,
		Backoff:        time.Millisecond,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "checksum mismatch")

	_, err = os.Stat(destination)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(destination + ".part")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDownloadFileRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	payload := []byte("eventually")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "model.bin")
	err := DownloadFile(context.Background(), Options{
		URL:         server.URL,
		Destination: destination,
		NoProgress:  true,
		Retries:     3,
		Backoff:     time.Millisecond,
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, calls.Load())
}

func TestDownloadFileStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DownloadFile(ctx, Options{
		URL:         server.URL,
		Destination: filepath.Join(t.TempDir(), "model.bin"),
		NoProgress:  true,
		Retries:     5,
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDownloadFileRequiresURLAndDestination(t *testing.T) {
	t.Parallel()

	require.Error(t, DownloadFile(context.Background(), Options{Destination: "x"}))
	require.Error(t, DownloadFile(context.Background(), Options{URL: "http://example.invalid"}))
}
