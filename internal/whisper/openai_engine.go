package whisper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAILoader targets an OpenAI-compatible /audio/transcriptions endpoint,
// either the hosted API or a self-hosted server speaking the same protocol.
// The device is informational: placement is up to the remote server.
type OpenAILoader struct {
	BaseURL string
	APIKey  string
	Logger  *zap.Logger
}

func (l *OpenAILoader) Load(ctx context.Context, name string, device Device) (Model, error) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: model name is required", ErrModelLoad)
	}

	cfg := openai.DefaultConfig(l.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(l.BaseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	client := openai.NewClientWithConfig(cfg)

	// Fail at startup when the endpoint is unreachable or rejects the key.
	if _, err := client.ListModels(ctx); err != nil {
		return nil, fmt.Errorf("%w: reach transcription server %s: %w", ErrModelLoad, cfg.BaseURL, err)
	}

	logger.Info("remote whisper model ready",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", name),
		zap.String("device", string(device)),
	)
	return &OpenAIModel{client: client, name: name}, nil
}

type OpenAIModel struct {
	client *openai.Client
	name   string
}

func (m *OpenAIModel) Transcribe(ctx context.Context, audioPath string, opts Options) (Result, error) {
	if strings.TrimSpace(audioPath) == "" {
		return Result{}, fmt.Errorf("%w: audio path is required", ErrTranscription)
	}

	resp, err := m.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    m.name,
		FilePath: audioPath,
		Language: strings.ToLower(strings.TrimSpace(opts.Language)),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Result{}, fmt.Errorf("%w: server returned %d: %s", ErrTranscription, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return Result{}, fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	language := resp.Language
	if language == "" {
		language = opts.Language
	}
	return Result{Text: resp.Text, Language: language}, nil
}
