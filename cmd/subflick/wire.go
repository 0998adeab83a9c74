package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"subflick/config"
	"subflick/internal/ffmpeg"
	"subflick/internal/orchestrator"
	"subflick/internal/retry"
	"subflick/internal/tracing"
	"subflick/internal/transcription"
	"subflick/internal/translation"
	"subflick/internal/workspace"
)

// services are the long-lived collaborators shared by every request.
type services struct {
	workspaces   *workspace.Manager
	provider     transcription.Provider
	pool         *transcription.Pool
	gateway      *translation.Gateway
	orchestrator *orchestrator.Orchestrator
	log          logrus.FieldLogger
}

func retryPolicy(cfg config.Retry) retry.Policy {
	return retry.Policy{
		Attempts:  cfg.Attempts,
		BaseDelay: cfg.BaseDelay.Duration,
		MaxDelay:  cfg.MaxDelay.Duration,
	}
}

func transcriptionOptions(cfg *config.Config, log logrus.FieldLogger) transcription.Options {
	t := cfg.Transcription
	return transcription.Options{
		APIKey:          t.APIKey,
		BaseURL:         t.BaseURL,
		Model:           t.Model,
		ResponseFormat:  t.ResponseFormat,
		Language:        t.Language,
		Timeout:         t.Timeout.Duration,
		CredentialsFile: t.CredentialsFile,
		Retry:           retryPolicy(cfg.Retry),
		Log:             log,
	}
}

func translationOptions(cfg *config.Config, log logrus.FieldLogger) translation.Options {
	t := cfg.Translation
	return translation.Options{
		APIKey:  t.APIKey,
		BaseURL: t.BaseURL,
		Model:   t.Model,
		Timeout: t.Timeout.Duration,
		Retry:   retryPolicy(cfg.Retry),
		Log:     log,
	}
}

func tracingConfig(cfg *config.Config) tracing.Config {
	return tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: "subflick",
		Version:     version,
		Writer:      os.Stderr,
	}
}

func buildServices(cfg *config.Config, log logrus.FieldLogger) (*services, error) {
	workspaces, err := workspace.NewManager(cfg.WorkspaceDir, log)
	if err != nil {
		return nil, err
	}

	provider, err := transcription.DefaultRegistry().New(cfg.Transcription.Provider, transcriptionOptions(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("transcription provider: %w", err)
	}
	pool := transcription.NewPool(provider, cfg.Transcription.Workers, cfg.Transcription.QueueSize, log)

	model, err := translation.NewModel(cfg.Translation.Provider, translationOptions(cfg, log))
	if err != nil {
		pool.Close()
		closeProvider(provider, log)
		return nil, fmt.Errorf("translation provider: %w", err)
	}
	gateway := translation.NewGateway(model, translation.GatewayConfig{
		DefaultLanguage: cfg.DefaultTargetLanguage,
		MaxInputChars:   cfg.Translation.MaxInputChars,
	}, log)

	runner := ffmpeg.NewRunner(cfg.FFmpegPath, cfg.FFprobePath, cfg.MaxConcurrentExtractions, log)
	orch := orchestrator.New(workspaces, runner, pool, gateway, orchestrator.Config{
		MaxUploadBytes: cfg.MaxUploadBytes,
		AudioFormat:    ffmpeg.AudioFormat(cfg.AudioFormat),
	}, log)

	log.WithFields(logrus.Fields{
		"transcription": provider.Name(),
		"translation":   model.Name(),
		"workspace_dir": workspaces.Root(),
	}).Info("services ready")

	return &services{
		workspaces:   workspaces,
		provider:     provider,
		pool:         pool,
		gateway:      gateway,
		orchestrator: orch,
		log:          log,
	}, nil
}

// Close stops the transcription workers and releases provider connections.
func (s *services) Close() {
	s.pool.Close()
	closeProvider(s.provider, s.log)
}

func closeProvider(p transcription.Provider, log logrus.FieldLogger) {
	if c, ok := p.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("failed to close transcription provider")
		}
	}
}
