package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fmueller/whisperd/internal/audio"
	"github.com/fmueller/whisperd/internal/whisper"
	"go.uber.org/zap"
)

const defaultUploadExt = ".wav"

var uploadExtPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

type transcribeResponse struct {
	Text string `json:"text"`
}

func (s *Server) transcribe(w http.ResponseWriter, r *http.Request) {
	if s.model == nil {
		writeError(w, whisper.ErrModelNotReady)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, "expected a multipart form with a file field")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer file.Close()

	language := strings.TrimSpace(r.FormValue("language"))
	logger := s.logger.With(zap.String("request_id", requestIDFrom(r.Context())))

	path, size, err := s.materialize(file, header)
	if err != nil {
		logger.Error("failed to store upload", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove upload", zap.String("path", path), zap.Error(err))
		}
	}()

	if size == 0 || s.silent(path, logger) {
		logger.Info("audio considered silent; skipping transcription", zap.Int64("bytes", size))
		writeJSON(w, http.StatusOK, transcribeResponse{Text: ""})
		return
	}

	opts := whisper.Options{HalfPrecision: s.opts.AcceleratorAvailable, Language: language}
	logger.Info("transcribing...", zap.String("file", header.Filename), zap.Int64("bytes", size), zap.String("language", language))
	started := time.Now()

	result, err := s.model.Transcribe(r.Context(), path, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("client went away during transcription", zap.Duration("elapsed", time.Since(started)))
			return
		}
		logger.Error("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		writeError(w, err)
		return
	}
	logger.Info("transcription finished", zap.Duration("elapsed", time.Since(started)))

	writeJSON(w, http.StatusOK, transcribeResponse{Text: whisper.NormalizeTranscript(result.Text)})
}

// materialize copies the upload into a temp file owned by the request. The
// caller removes it.
func (s *Server) materialize(src multipart.File, header *multipart.FileHeader) (string, int64, error) {
	ext := filepath.Ext(header.Filename)
	if !uploadExtPattern.MatchString(ext) {
		ext = defaultUploadExt
	}

	dst, err := os.CreateTemp(s.opts.TempDir, "whisperd-upload-*"+strings.ToLower(ext))
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}

	size, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dst.Name())
		return "", 0, fmt.Errorf("write temp file: %w", err)
	}
	return dst.Name(), size, nil
}

func (s *Server) silent(path string, logger *zap.Logger) bool {
	if !s.opts.SilenceGate {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, 12)
	if _, err := io.ReadFull(f, header); err != nil || !audio.IsWAV(header) {
		return false
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false
	}

	metrics, err := audio.AnalyzeWAV(f)
	if err != nil {
		logger.Debug("silence gate analysis failed; continuing transcription", zap.Error(err))
		return false
	}
	if !metrics.Silent(s.opts.SilenceThresholdDBFS) {
		return false
	}

	logger.Debug("silence gate triggered",
		zap.Float64("rms_dbfs", metrics.RMSdBFS),
		zap.Float64("peak_dbfs", metrics.PeakdBFS),
		zap.Float64("threshold_dbfs", s.opts.SilenceThresholdDBFS),
	)
	return true
}
