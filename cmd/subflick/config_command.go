package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subflick/config"
	"subflick/internal/transcription"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Validate and print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderConfig(cfg))
			return nil
		},
	}
}

func renderConfig(cfg *config.Config) string {
	t, tr := cfg.Transcription, cfg.Translation
	rows := [][]string{
		{"listen_addr", cfg.ListenAddr},
		{"cors_allowed_origins", cfg.CORSAllowedOrigins},
		{"default_target_language", cfg.DefaultTargetLanguage},
		{"workspace_dir", cfg.WorkspaceDir},
		{"max_upload_bytes", humanize.IBytes(uint64(cfg.MaxUploadBytes))},
		{"workspace_max_age", cfg.WorkspaceMaxAge.String()},
		{"sweep_interval", cfg.SweepInterval.String()},
		{"audio_format", cfg.AudioFormat},
		{"max_concurrent_extractions", strconv.Itoa(cfg.MaxConcurrentExtractions)},
		{"transcription.provider", t.Provider},
		{"transcription.api_key", mask(t.APIKey)},
		{"transcription.model", t.Model},
		{"transcription.response_format", t.ResponseFormat},
		{"transcription.workers", strconv.Itoa(t.Workers)},
		{"transcription.queue_size", strconv.Itoa(t.QueueSize)},
		{"transcription.timeout", t.Timeout.String()},
		{"translation.provider", tr.Provider},
		{"translation.api_key", mask(tr.APIKey)},
		{"translation.model", tr.Model},
		{"translation.max_input_chars", strconv.Itoa(tr.MaxInputChars)},
		{"retry.attempts", strconv.Itoa(cfg.Retry.Attempts)},
		{"tracing.enabled", strconv.FormatBool(cfg.Tracing.Enabled)},
		{"logging.level", cfg.Logging.Level},
		{"available recognizers", fmt.Sprint(transcription.DefaultRegistry().Names())},
	}
	return renderTable([]string{"Key", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}

func mask(secret string) string {
	switch {
	case secret == "":
		return "(unset)"
	case len(secret) <= 8:
		return "********"
	default:
		return secret[:4] + "..." + secret[len(secret)-2:]
	}
}
