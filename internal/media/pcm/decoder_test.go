package pcm

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeStub installs a shell script that mimics the decoder child:
// PCM bytes on stdout, key=value progress on stderr, exit status as
// the script body sets it.
func writeStub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub decoder requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-decoder")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestStreamDeliversPCMAndProgress(t *testing.T) {
	stub := writeStub(t, `
printf 'out_time_ms=500000\n' 1>&2
printf 'AAAABBBB'
printf 'out_time_ms=1000000\n' 1>&2
exit 0
`)
	var positions []float64
	decoder := NewDecoder(stub)
	stream, err := decoder.Start(context.Background(), "/tmp/in.mp4", Options{SampleRate: 44100, Channels: 1}, func(s float64) {
		positions = append(positions, s)
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	data, err := io.ReadAll(stream.Reader())
	if err != nil {
		t.Fatalf("read pcm: %v", err)
	}
	if string(data) != "AAAABBBB" {
		t.Fatalf("pcm bytes = %q", data)
	}
	if err := stream.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(positions) != 2 || positions[0] != 0.5 || positions[1] != 1.0 {
		t.Fatalf("progress positions = %v", positions)
	}
}

func TestStreamWaitSurfacesStderrTail(t *testing.T) {
	stub := writeStub(t, `
printf 'somedata'
printf 'codec not found\n' 1>&2
exit 1
`)
	decoder := NewDecoder(stub)
	stream, err := decoder.Start(context.Background(), "/tmp/in.mp4", Options{}, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := io.ReadAll(stream.Reader()); err != nil {
		t.Fatalf("read pcm: %v", err)
	}
	waitErr := stream.Wait()
	if waitErr == nil {
		t.Fatal("expected failure for non-zero exit")
	}
	if !strings.Contains(waitErr.Error(), "codec not found") {
		t.Fatalf("stderr tail missing from error: %v", waitErr)
	}
}

func TestStreamShortOutputStillDelivered(t *testing.T) {
	// The child dies early: all bytes received before the failure must
	// still reach the reader.
	stub := writeStub(t, `
printf 'PART'
exit 1
`)
	decoder := NewDecoder(stub)
	stream, err := decoder.Start(context.Background(), "/tmp/in.mp4", Options{}, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	data, _ := io.ReadAll(stream.Reader())
	if string(data) != "PART" {
		t.Fatalf("short stream bytes = %q", data)
	}
	if err := stream.Wait(); err == nil {
		t.Fatal("expected failure for non-zero exit")
	}
}

func TestTerminateReapsChild(t *testing.T) {
	stub := writeStub(t, `
sleep 30 > /dev/null 2>&1
`)
	decoder := NewDecoder(stub)
	stream, err := decoder.Start(context.Background(), "/tmp/in.mp4", Options{}, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	done := make(chan struct{})
	go func() {
		stream.Terminate()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Terminate did not reap the child")
	}
}

func TestNewDecoderDefaultsBinary(t *testing.T) {
	if got := NewDecoder("").Binary(); got != "ffmpeg" {
		t.Fatalf("default binary = %q", got)
	}
}
