package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const probeJSON = `{"format":{"format_name":"mov,mp4,m4a","duration":"12.500000"},"streams":[{"index":0,"codec_type":"video","codec_name":"h264"},{"index":1,"codec_type":"audio","codec_name":"aac"}]}`

func newTestRunner(t *testing.T, ffmpegBody, ffprobeBody string) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	ffmpegPath := writeScript(t, dir, "ffmpeg", ffmpegBody)
	ffprobePath := writeScript(t, dir, "ffprobe", ffprobeBody)
	log, _ := test.NewNullLogger()
	return NewRunner(ffmpegPath, ffprobePath, 2, log), dir
}

func TestProbe(t *testing.T) {
	r, dir := newTestRunner(t, "exit 0\n", "echo '"+probeJSON+"'\n")
	meta, err := r.Probe(context.Background(), filepath.Join(dir, "in.mp4"))
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if meta.Duration != 12500*time.Millisecond {
		t.Fatalf("unexpected duration %v", meta.Duration)
	}
	if !meta.HasVideo() {
		t.Fatal("expected a video stream")
	}
	audio, ok := meta.AudioStream()
	if !ok || audio.Index != 1 || audio.CodecName != "aac" {
		t.Fatalf("unexpected audio stream %+v (found=%v)", audio, ok)
	}
}

func TestProbeWithoutAudio(t *testing.T) {
	r, _ := newTestRunner(t, "exit 0\n", `echo '{"format":{"duration":"1.0"},"streams":[{"index":0,"codec_type":"video"}]}'`+"\n")
	meta, err := r.Probe(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if _, ok := meta.AudioStream(); ok {
		t.Fatal("expected no audio stream")
	}
}

func TestProbeFailureCarriesStderr(t *testing.T) {
	r, _ := newTestRunner(t, "exit 0\n", "echo 'moov atom not found' >&2\nexit 1\n")
	_, err := r.Probe(context.Background(), "broken.mp4")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if cmdErr.Tool != "ffprobe" || !strings.Contains(cmdErr.Stderr, "moov atom not found") {
		t.Fatalf("unexpected CommandError %+v", cmdErr)
	}
}

func TestExtractAudio(t *testing.T) {
	// The fake writes its arguments to the output path (the last argument).
	body := `for last; do :; done
echo "$@" > "$last"
`
	r, dir := newTestRunner(t, body, "exit 0\n")
	out := filepath.Join(dir, "audio"+FormatMP3.Ext())
	if err := r.ExtractAudio(context.Background(), filepath.Join(dir, "source.mp4"), out, FormatMP3); err != nil {
		t.Fatalf("ExtractAudio returned error: %v", err)
	}
	args, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	for _, want := range []string{"-vn", "-ac 1", "-ar 16000", "-c:a libmp3lame", "source.mp4"} {
		if !strings.Contains(string(args), want) {
			t.Errorf("ffmpeg arguments %q missing %q", args, want)
		}
	}
}

func TestExtractAudioFailure(t *testing.T) {
	r, dir := newTestRunner(t, "echo 'Invalid data found' >&2\nexit 1\n", "exit 0\n")
	err := r.ExtractAudio(context.Background(), "in.mp4", filepath.Join(dir, "out.wav"), FormatWAV)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Tool != "ffmpeg" {
		t.Fatalf("expected ffmpeg CommandError, got %v", err)
	}
}

func TestExtractAudioRejectsUnknownFormat(t *testing.T) {
	r, dir := newTestRunner(t, "exit 0\n", "exit 0\n")
	if err := r.ExtractAudio(context.Background(), "in.mp4", filepath.Join(dir, "out.ogg"), AudioFormat("ogg")); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestExtractAudioHonoursContext(t *testing.T) {
	r, dir := newTestRunner(t, "exec sleep 5\n", "exit 0\n")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := r.ExtractAudio(ctx, "in.mp4", filepath.Join(dir, "out.flac"), FormatFLAC)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("ExtractAudio did not stop with its context")
	}
}

func TestTail(t *testing.T) {
	long := strings.Repeat("x", maxStderr+100)
	if got := tail(long); len(got) != maxStderr+3 || !strings.HasPrefix(got, "...") {
		t.Fatalf("tail did not truncate: %d bytes", len(got))
	}
	if got := tail("  short \n"); got != "short" {
		t.Fatalf("tail(short) = %q", got)
	}
}
