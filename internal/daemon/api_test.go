package daemon_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"autocut/internal/api"
	"autocut/internal/config"
	"autocut/internal/daemon"
	"autocut/internal/jobs"
	"autocut/internal/media/pcm"
	"autocut/internal/testsupport"
	"autocut/internal/workflow"
)

const testRate = 44100

type testDaemon struct {
	d    *daemon.Daemon
	base string
}

func startDaemon(t *testing.T, mutate func(*config.Config)) testDaemon {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub tools require a POSIX shell")
	}

	cfg := testsupport.NewConfig(t)
	binDir := t.TempDir()

	// PCM fixture: 4 s tone, 2 s silence, 4 s tone.
	pcmPath := filepath.Join(binDir, "fixture.pcm")
	writeTonePCM(t, pcmPath)

	cfg.Tools.FFprobeBinary = writeScript(t, binDir, "fake-ffprobe", `cat <<'JSON'
{
  "streams": [
    {"index": 0, "codec_type": "video", "avg_frame_rate": "30/1"},
    {"index": 1, "codec_type": "audio", "sample_rate": "44100", "channels": 1}
  ],
  "format": {"duration": "10.000000"}
}
JSON
`)
	decoderPath := writeScript(t, binDir, "fake-ffmpeg", `cat "`+pcmPath+`"`)
	cfg.Tools.DecoderBinary = decoderPath

	if mutate != nil {
		mutate(cfg)
	}

	store := testsupport.MustOpenStore(t)
	manager := workflow.New(cfg, store, nil, workflow.WithDecoder(pcm.NewDecoder(decoderPath)))
	d, err := daemon.New(cfg, store, nil, manager)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start failed: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return testDaemon{d: d, base: "http://" + d.Addr()}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeTonePCM(t *testing.T, path string) {
	t.Helper()
	var data []byte
	var scratch [2]byte
	appendSpan := func(seconds, dbfs float64) {
		frames := int(seconds * testRate)
		amp := 0.0
		if dbfs > -90 {
			amp = math.Pow(10, dbfs/20) * 32767
		}
		for i := 0; i < frames; i++ {
			sample := int16(amp * math.Sin(2*math.Pi*440*float64(i)/testRate))
			binary.LittleEndian.PutUint16(scratch[:], uint16(sample))
			data = append(data, scratch[0], scratch[1])
		}
	}
	appendSpan(4, -20)
	appendSpan(2, -100)
	appendSpan(4, -20)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write pcm fixture: %v", err)
	}
}

func uploadFile(t *testing.T, base, filename string, size int, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte{0x42}, size)); err != nil {
		t.Fatalf("write file body: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, base+"/api/upload", &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func waitCompleted(t *testing.T, base, jobID string) api.JobView {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/api/jobs/" + jobID)
		if err != nil {
			t.Fatalf("status request: %v", err)
		}
		view := decodeJSON[api.JobView](t, resp)
		switch jobs.Status(view.Status) {
		case jobs.StatusCompleted:
			return view
		case jobs.StatusFailed, jobs.StatusCancelled:
			t.Fatalf("job ended %s: %+v", view.Status, view)
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("job did not complete in time")
	return api.JobView{}
}

func TestUploadAnalyzeDownloadRoundTrip(t *testing.T) {
	td := startDaemon(t, nil)

	resp := uploadFile(t, td.base, "talk.mp4", 1024, map[string]string{
		"silence_threshold_db": "-45",
		"min_silence_ms":       "800",
		"padding_ms":           "250",
		"fps":                  "30",
	})
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d: %s", resp.StatusCode, body)
	}
	accepted := decodeJSON[api.UploadResponse](t, resp)
	if accepted.JobID == "" {
		t.Fatalf("missing job id: %+v", accepted)
	}

	view := waitCompleted(t, td.base, accepted.JobID)
	if view.Result == nil {
		t.Fatalf("completed job missing result: %+v", view)
	}
	if view.Result.CutCount != 2 || view.Result.SilenceCount != 1 {
		t.Fatalf("unexpected analysis summary: %+v", view.Result)
	}

	dl, err := http.Get(td.base + view.Result.LegacyXMLURL)
	if err != nil {
		t.Fatalf("download request: %v", err)
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", dl.StatusCode)
	}
	payload, err := io.ReadAll(dl.Body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if !strings.Contains(string(payload), "<xmeml") {
		t.Fatalf("legacy XML body wrong: %s", payload[:min(len(payload), 200)])
	}
}

func TestUploadRejectsBadRequests(t *testing.T) {
	td := startDaemon(t, nil)

	cases := []struct {
		name     string
		filename string
		fields   map[string]string
		want     int
	}{
		{"unsupported extension", "talk.exe", nil, http.StatusBadRequest},
		{"unknown option", "talk.mp4", map[string]string{"speed": "2"}, http.StatusBadRequest},
		{"bad threshold", "talk.mp4", map[string]string{"silence_threshold_db": "-80"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := uploadFile(t, td.base, tc.filename, 128, tc.fields)
			defer resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}

	// Rejected uploads never create jobs.
	resp, err := http.Get(td.base + "/api/jobs")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	list := decodeJSON[api.JobListResponse](t, resp)
	if len(list.Jobs) != 0 {
		t.Fatalf("rejected uploads must not create jobs: %+v", list.Jobs)
	}
}

func TestUploadTooLargeRefused(t *testing.T) {
	td := startDaemon(t, func(cfg *config.Config) {
		cfg.Limits.MaxUploadBytes = 512
	})
	resp := uploadFile(t, td.base, "talk.mp4", 4096, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestEventsSocketStreamsToTerminal(t *testing.T) {
	td := startDaemon(t, nil)

	resp := uploadFile(t, td.base, "talk.mp4", 1024, nil)
	accepted := decodeJSON[api.UploadResponse](t, resp)

	wsURL := "ws" + strings.TrimPrefix(td.base, "http") + "/api/jobs/" + accepted.JobID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	var sawProgress, sawResult bool
	deadline := time.Now().Add(30 * time.Second)
	for !sawResult && time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var msg api.EventMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			t.Fatalf("read event: %v", err)
		}
		switch msg.Kind {
		case "progress":
			sawProgress = true
		case "result":
			sawResult = true
			if msg.Report == nil || len(msg.Report.Cuts) != 2 {
				t.Fatalf("result report wrong: %+v", msg.Report)
			}
		case "error":
			t.Fatalf("unexpected error event: %+v", msg)
		}
	}
	if !sawProgress || !sawResult {
		t.Fatalf("progress=%v result=%v", sawProgress, sawResult)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	td := startDaemon(t, nil)

	resp := uploadFile(t, td.base, "talk.mp4", 1024, nil)
	accepted := decodeJSON[api.UploadResponse](t, resp)
	waitCompleted(t, td.base, accepted.JobID)

	for i := 0; i < 2; i++ {
		cancelResp, err := http.Post(td.base+"/api/jobs/"+accepted.JobID+"/cancel", "", nil)
		if err != nil {
			t.Fatalf("cancel request: %v", err)
		}
		cancelResp.Body.Close()
		if cancelResp.StatusCode != http.StatusAccepted {
			t.Fatalf("cancel status = %d", cancelResp.StatusCode)
		}
	}

	view := decodeJSON[api.JobView](t, mustGet(t, td.base+"/api/jobs/"+accepted.JobID))
	if view.Status != string(jobs.StatusCompleted) {
		t.Fatalf("cancel of a terminal job must not change it: %+v", view)
	}
}

func TestAuthTokenEnforced(t *testing.T) {
	td := startDaemon(t, func(cfg *config.Config) {
		cfg.Paths.APIToken = "secret"
	})

	resp, err := http.Get(td.base + "/api/jobs")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, td.base+"/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer secret")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", authed.StatusCode)
	}
}

func TestRemoveDeletesArtifacts(t *testing.T) {
	td := startDaemon(t, nil)

	resp := uploadFile(t, td.base, "talk.mp4", 1024, nil)
	accepted := decodeJSON[api.UploadResponse](t, resp)
	view := waitCompleted(t, td.base, accepted.JobID)
	_ = view

	req, _ := http.NewRequest(http.MethodDelete, td.base+"/api/jobs/"+accepted.JobID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete request: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", delResp.StatusCode)
	}

	statusResp, err := http.Get(td.base + "/api/jobs/" + accepted.JobID)
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	statusResp.Body.Close()
	if statusResp.StatusCode != http.StatusNotFound {
		t.Fatalf("removed job status = %d, want 404", statusResp.StatusCode)
	}
}

func TestStartFailsInterruptedJobs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub tools require a POSIX shell")
	}
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t)

	// A job left mid-analysis by a dead process.
	stale := testsupport.NewJob(t, store, "stale.mp4")
	stale.Status = jobs.StatusUploaded
	if err := store.Update(context.Background(), stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	stale.Status = jobs.StatusAnalyzing
	if err := store.Update(context.Background(), stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	manager := workflow.New(cfg, store, nil)
	d, err := daemon.New(cfg, store, nil, manager)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	job, err := store.GetByID(context.Background(), stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job.Status != jobs.StatusFailed || job.ErrorReason != jobs.InterruptedReason {
		t.Fatalf("restart must fail interrupted jobs: %+v", job)
	}
}

func TestSecondDaemonInstanceRefused(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub tools require a POSIX shell")
	}
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t)

	first, err := daemon.New(cfg, store, nil, workflow.New(cfg, store, nil))
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })

	cfg2 := *cfg
	cfg2.Paths.APIBind = "127.0.0.1:0"
	second, err := daemon.New(&cfg2, store, nil, workflow.New(&cfg2, store, nil))
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance over the same lock must be refused")
	}
}

func TestHealthReportsDependencies(t *testing.T) {
	td := startDaemon(t, nil)
	health := decodeJSON[api.HealthResponse](t, mustGet(t, td.base+"/api/health"))
	if len(health.Dependencies) != 3 {
		t.Fatalf("expected three dependencies: %+v", health.Dependencies)
	}
}

func mustGet(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
