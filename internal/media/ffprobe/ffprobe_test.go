package ffprobe

import (
	"encoding/json"
	"math"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "avg_frame_rate": "30000/1001",
      "r_frame_rate": "30000/1001"
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "sample_rate": "44100",
      "channels": 2
    }
  ],
  "format": {
    "filename": "interview.mp4",
    "nb_streams": 2,
    "duration": "10.000000",
    "format_name": "mov,mp4,m4a"
  }
}`

func parseSample(t *testing.T) Result {
	t.Helper()
	var result Result
	if err := json.Unmarshal([]byte(sampleJSON), &result); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	return result
}

func TestSummarize(t *testing.T) {
	info, err := parseSample(t).Summarize()
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if info.DurationSeconds != 10 {
		t.Fatalf("duration = %v, want 10", info.DurationSeconds)
	}
	if math.Abs(info.ContainerFPS-29.97) > 0.001 {
		t.Fatalf("fps = %v, want ~29.97", info.ContainerFPS)
	}
	if info.Channels != 2 || info.SampleRateHz != 44100 {
		t.Fatalf("audio layout wrong: %+v", info)
	}
}

func TestSummarizeRejectsZeroDuration(t *testing.T) {
	var result Result
	if _, err := result.Summarize(); err == nil {
		t.Fatal("zero duration must fail")
	}
}

func TestStreamFPSFallsBackToRFrameRate(t *testing.T) {
	s := Stream{AvgFrameRate: "0/0", RFrameRate: "25/1"}
	if got := s.FPS(); got != 25 {
		t.Fatalf("FPS = %v, want 25", got)
	}
}

func TestAudioStreamCount(t *testing.T) {
	if got := parseSample(t).AudioStreamCount(); got != 1 {
		t.Fatalf("AudioStreamCount = %d, want 1", got)
	}
}
