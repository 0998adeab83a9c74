package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// ErrNoAudio is returned when a media file carries no audio stream.
var ErrNoAudio = errors.New("ffmpeg: no audio stream")

// AudioFormat selects the container and codec of extracted audio.
type AudioFormat string

const (
	FormatMP3  AudioFormat = "mp3"
	FormatFLAC AudioFormat = "flac"
	FormatWAV  AudioFormat = "wav"
)

// Ext returns the file extension, with a leading dot, for the format.
func (f AudioFormat) Ext() string { return "." + string(f) }

func (f AudioFormat) codecArgs() ([]string, error) {
	switch f {
	case FormatMP3:
		return []string{"-c:a", "libmp3lame", "-b:a", "64k"}, nil
	case FormatFLAC:
		return []string{"-c:a", "flac"}, nil
	case FormatWAV:
		return []string{"-c:a", "pcm_s16le"}, nil
	default:
		return nil, fmt.Errorf("ffmpeg: unsupported audio format %q", string(f))
	}
}

// CommandError carries the tail of a failed tool's stderr.
type CommandError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Tool, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

const maxStderr = 2048

// Stream is the subset of an ffprobe stream entry used here.
type Stream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
}

// Metadata describes a probed media file.
type Metadata struct {
	FormatName string
	Duration   time.Duration
	Streams    []Stream
}

// AudioStream returns the first audio stream, if any.
func (m *Metadata) AudioStream() (Stream, bool) {
	for _, s := range m.Streams {
		if s.CodecType == "audio" {
			return s, true
		}
	}
	return Stream{}, false
}

// HasVideo reports whether the file carries a video stream.
func (m *Metadata) HasVideo() bool {
	for _, s := range m.Streams {
		if s.CodecType == "video" {
			return true
		}
	}
	return false
}

type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
	Streams []Stream `json:"streams"`
}

// Runner invokes the ffmpeg and ffprobe binaries. At most maxConcurrent
// ffmpeg processes run at once; further callers wait or give up with ctx.
type Runner struct {
	FFmpegPath  string
	FFprobePath string

	sem *semaphore.Weighted
	log logrus.FieldLogger
}

// NewRunner returns a Runner. Empty paths fall back to the binaries on PATH.
func NewRunner(ffmpegPath, ffprobePath string, maxConcurrent int, log logrus.FieldLogger) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		sem:         semaphore.NewWeighted(int64(maxConcurrent)),
		log:         log.WithField("component", "ffmpeg"),
	}
}

// Probe reads container and stream metadata with ffprobe.
func (r *Runner) Probe(ctx context.Context, path string) (*Metadata, error) {
	stdout, err := r.run(ctx, r.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, err
	}

	var out probeOutput
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}
	meta := &Metadata{FormatName: out.Format.FormatName, Streams: out.Streams}
	if out.Format.Duration != "" {
		secs, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
		}
		meta.Duration = time.Duration(secs * float64(time.Second))
	}
	return meta, nil
}

// ExtractAudio writes the first audio stream of input to output as mono 16 kHz
// audio in the given format.
func (r *Runner) ExtractAudio(ctx context.Context, input, output string, format AudioFormat) error {
	codec, err := format.codecArgs()
	if err != nil {
		return err
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-map", "0:a:0",
		"-vn", "-sn", "-dn",
		"-ac", "1",
		"-ar", "16000",
	}
	args = append(args, codec...)
	args = append(args, output)

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for ffmpeg slot: %w", err)
	}
	defer r.sem.Release(1)

	start := time.Now()
	if _, err := r.run(ctx, r.FFmpegPath, args...); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{
		"input":    input,
		"output":   output,
		"format":   string(format),
		"duration": time.Since(start).String(),
	}).Debug("audio extracted")
	return nil
}

func (r *Runner) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &CommandError{Tool: toolName(bin), Err: err, Stderr: tail(stderr.String())}
	}
	return stdout.Bytes(), nil
}

func toolName(bin string) string {
	if i := strings.LastIndexAny(bin, `/\`); i >= 0 {
		return bin[i+1:]
	}
	return bin
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxStderr {
		return s
	}
	return "..." + s[len(s)-maxStderr:]
}
