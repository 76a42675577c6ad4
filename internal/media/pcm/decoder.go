package pcm

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"autocut/internal/services"
)

// stderrTailBytes bounds how much tool output is retained for error
// reporting.
const stderrTailBytes = 4096

// Options select the PCM layout the child is asked to produce.
type Options struct {
	SampleRate int
	Channels   int
}

// Decoder spawns the external converter for one file at a time.
type Decoder struct {
	binary string
}

// NewDecoder constructs a decoder around the given binary. An empty
// name falls back to ffmpeg.
func NewDecoder(binary string) *Decoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Decoder{binary: binary}
}

// Binary returns the configured tool name.
func (d *Decoder) Binary() string {
	return d.binary
}

// Available reports whether the decoder binary resolves on PATH.
func (d *Decoder) Available() bool {
	_, err := exec.LookPath(d.binary)
	return err == nil
}

// Stream is a running decode child. PCM bytes are read from Reader;
// Wait must be called after reading finishes; it is safe to call more
// than once (Terminate calls it internally).
type Stream struct {
	cmd        *exec.Cmd
	reader     io.ReadCloser
	stderrDone chan struct{}
	tail       []byte
	tailMu     sync.Mutex

	waitOnce sync.Once
	waitErr  error
}

// Start launches the decode child. The input path is passed as a
// distinct argv element, never shell-composed. Progress, when
// non-nil, receives the decoded position in seconds as the child
// reports it.
func (d *Decoder) Start(ctx context.Context, path string, opts Options, progress func(seconds float64)) (*Stream, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrExternalTool, "decode", "start", "empty path", nil)
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}

	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-progress", "pipe:2",
		"-i", path,
		"-vn",
		"-ac", strconv.Itoa(opts.Channels),
		"-ar", strconv.Itoa(opts.SampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, d.binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "decode", "stdout pipe", "", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "decode", "stderr pipe", "", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "decode", "start child", d.binary, err)
	}

	s := &Stream{
		cmd:        cmd,
		reader:     stdout,
		stderrDone: make(chan struct{}),
	}
	go s.consumeStderr(stderr, progress)
	return s, nil
}

// Reader exposes the raw PCM byte stream.
func (s *Stream) Reader() io.Reader {
	return s.reader
}

// Wait drains the child and reports its exit status. A non-zero exit
// surfaces the retained stderr tail. Safe to call more than once.
func (s *Stream) Wait() error {
	s.waitOnce.Do(func() {
		// Ensure stdout is closed so the child is not blocked on a
		// full pipe when the reader stopped early.
		_ = s.reader.Close()
		<-s.stderrDone
		if err := s.cmd.Wait(); err != nil {
			s.waitErr = services.Wrap(services.ErrExternalTool, "decode", "toolchain failed", s.Tail(), err)
		}
	})
	return s.waitErr
}

// Terminate kills the child and waits for it, never orphaning the
// process. The exit error of a killed child is discarded.
func (s *Stream) Terminate() {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.Wait()
}

// Tail returns the retained end of the child's stderr.
func (s *Stream) Tail() string {
	s.tailMu.Lock()
	defer s.tailMu.Unlock()
	return strings.TrimSpace(string(s.tail))
}

func (s *Stream) consumeStderr(r io.Reader, progress func(seconds float64)) {
	defer close(s.stderrDone)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		s.appendTail(line)
		key, value, ok := strings.Cut(line, "=")
		if !ok || progress == nil {
			continue
		}
		if strings.TrimSpace(key) == "out_time_ms" {
			if micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil && micros >= 0 {
				progress(float64(micros) / 1e6)
			}
		}
	}
}

func (s *Stream) appendTail(line string) {
	s.tailMu.Lock()
	defer s.tailMu.Unlock()
	s.tail = append(s.tail, line...)
	s.tail = append(s.tail, '\n')
	if len(s.tail) > stderrTailBytes {
		s.tail = s.tail[len(s.tail)-stderrTailBytes:]
	}
}
