package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subflick/internal/orchestrator"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var targetLanguage string
	var outDir string

	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe and translate a local media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.logger()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("stat input: %w", err)
			}

			svc, err := buildServices(cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.orchestrator.Process(runCtx, orchestrator.Upload{
				Filename:       filepath.Base(args[0]),
				Size:           info.Size(),
				Reader:         f,
				TargetLanguage: targetLanguage,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSummary(res))
			if outDir == "" {
				fmt.Fprintln(out)
				printPayload(out, res)
				return nil
			}
			written, err := writeOutputs(outDir, res)
			if err != nil {
				return err
			}
			for _, p := range written {
				fmt.Fprintf(out, "wrote %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetLanguage, "target-language", "t", "", "Target language name or code (defaults to the configured language)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Write the original and translated files to this directory instead of stdout")
	return cmd
}

func renderSummary(res *orchestrator.Result) string {
	rows := [][]string{
		{"File", res.Filename},
		{"Size", humanize.IBytes(uint64(res.Size))},
		{"Media type", res.Media.MIME},
		{"Checksum", res.Checksum},
		{"Mode", string(res.Mode)},
		{"Segments", strconv.Itoa(len(res.Segments))},
		{"Target language", res.TargetLanguage},
		{"Translation", string(res.Translation.Status)},
	}
	if res.Translation.Detail != "" {
		rows = append(rows, []string{"Detail", res.Translation.Detail})
	}
	for _, issue := range res.Translation.Issues {
		rows = append(rows, []string{"Issue", issue})
	}
	rows = append(rows,
		[]string{"Extraction", res.Timings.Extract.Round(time.Millisecond).String()},
		[]string{"Transcription", res.Timings.Transcribe.Round(time.Millisecond).String()},
		[]string{"Translation time", res.Timings.Translate.Round(time.Millisecond).String()},
		[]string{"Total", res.Timings.Total.Round(time.Millisecond).String()},
	)
	return renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}

func printPayload(out io.Writer, res *orchestrator.Result) {
	fmt.Fprint(out, res.Original)
	if res.Translation.Text != "" {
		fmt.Fprintf(out, "\n--- %s ---\n\n", res.TargetLanguage)
		fmt.Fprint(out, res.Translation.Text)
	}
}

// writeOutputs writes <name>.srt and <name>.<language>.srt, or .txt files for
// flat transcripts.
func writeOutputs(dir string, res *orchestrator.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	ext := ".srt"
	if res.Mode == orchestrator.ModeTranscript {
		ext = ".txt"
	}
	stem := strings.TrimSuffix(res.Filename, filepath.Ext(res.Filename))

	files := []struct{ name, body string }{{stem + ext, res.Original}}
	if res.Translation.Text != "" {
		lang := strings.ToLower(strings.ReplaceAll(res.TargetLanguage, " ", "_"))
		files = append(files, struct{ name, body string }{stem + "." + lang + ext, res.Translation.Text})
	}

	var written []string
	for _, f := range files {
		p := filepath.Join(dir, f.name)
		if err := os.WriteFile(p, []byte(f.body), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", p, err)
		}
		written = append(written, p)
	}
	return written, nil
}
