package edl

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"

	"autocut/internal/services"
	"autocut/internal/timeline"
)

// Legacy track-based XML (xmeml version 5). One sequence, one video
// track, one stereo audio track, one clipitem pair per kept cut. The
// file element is defined on the first clipitem and referenced by id
// afterwards; the target application rejects documents that repeat
// full file definitions.

type legacyDocument struct {
	XMLName  xml.Name       `xml:"xmeml"`
	Version  string         `xml:"version,attr"`
	Sequence legacySequence `xml:"sequence"`
}

type legacySequence struct {
	ID       string      `xml:"id,attr"`
	Name     string      `xml:"name"`
	Duration int         `xml:"duration"`
	Rate     legacyRate  `xml:"rate"`
	Media    legacyMedia `xml:"media"`
}

type legacyRate struct {
	Timebase int    `xml:"timebase"`
	NTSC     string `xml:"ntsc"`
}

type legacyMedia struct {
	Video legacyTrackGroup `xml:"video"`
	Audio legacyTrackGroup `xml:"audio"`
}

type legacyTrackGroup struct {
	Track legacyTrack `xml:"track"`
}

type legacyTrack struct {
	ClipItems []legacyClipItem `xml:"clipitem"`
}

type legacyClipItem struct {
	ID          string             `xml:"id,attr"`
	Name        string             `xml:"name"`
	Enabled     string             `xml:"enabled"`
	Duration    int                `xml:"duration"`
	Rate        legacyRate         `xml:"rate"`
	Start       int                `xml:"start"`
	End         int                `xml:"end"`
	In          int                `xml:"in"`
	Out         int                `xml:"out"`
	File        legacyFile         `xml:"file"`
	SourceTrack *legacySourceTrack `xml:"sourcetrack,omitempty"`
}

type legacyFile struct {
	ID       string       `xml:"id,attr"`
	Name     string       `xml:"name,omitempty"`
	PathURL  string       `xml:"pathurl,omitempty"`
	Rate     *legacyRate  `xml:"rate,omitempty"`
	Duration int          `xml:"duration,omitempty"`
	Media    *legacyFiled `xml:"media,omitempty"`
}

type legacyFiled struct {
	Video *legacyCharacteristics `xml:"video,omitempty"`
	Audio *legacyAudioInfo       `xml:"audio,omitempty"`
}

type legacyCharacteristics struct {
	Width  int `xml:"samplecharacteristics>width"`
	Height int `xml:"samplecharacteristics>height"`
}

type legacyAudioInfo struct {
	Depth      int `xml:"samplecharacteristics>depth"`
	SampleRate int `xml:"samplecharacteristics>samplerate"`
	Channels   int `xml:"channelcount"`
}

type legacySourceTrack struct {
	MediaType  string `xml:"mediatype"`
	TrackIndex int    `xml:"trackindex"`
}

// WriteLegacy serializes the cut list as legacy editor XML.
func WriteLegacy(w io.Writer, src Source, cuts []timeline.Cut) error {
	if err := validate(src, cuts); err != nil {
		return err
	}

	rate := legacyRate{
		Timebase: int(math.Round(src.FPS)),
		NTSC:     legacyBool(IsNTSC(src.FPS)),
	}
	fileDuration := timeline.FrameIndex(src.DurationSeconds, src.FPS)
	stem := src.Stem()

	doc := legacyDocument{
		Version: "5",
		Sequence: legacySequence{
			ID:       "sequence-" + stem,
			Name:     stem,
			Duration: timeline.TotalFrames(cuts),
			Rate:     rate,
		},
	}

	const fileID = "file-1"
	timelinePos := 0
	for i, cut := range cuts {
		frames := cut.FrameCount()

		file := legacyFile{ID: fileID}
		if i == 0 {
			// First occurrence carries the full definition; later
			// clipitems reference it by id.
			file.Name = stem
			file.PathURL = src.PathURL()
			file.Rate = &rate
			file.Duration = fileDuration
			file.Media = &legacyFiled{
				Video: &legacyCharacteristics{Width: 1920, Height: 1080},
				Audio: &legacyAudioInfo{Depth: 16, SampleRate: 48000, Channels: 2},
			}
		}

		video := legacyClipItem{
			ID:       fmt.Sprintf("clip-v1-%d", i+1),
			Name:     stem,
			Enabled:  "TRUE",
			Duration: frames,
			Rate:     rate,
			Start:    timelinePos,
			End:      timelinePos + frames,
			In:       cut.InFrame,
			Out:      cut.OutFrame,
			File:     file,
		}
		audio := video
		audio.ID = fmt.Sprintf("clip-a1-%d", i+1)
		audio.File = legacyFile{ID: fileID}
		audio.SourceTrack = &legacySourceTrack{MediaType: "audio", TrackIndex: 1}

		doc.Sequence.Media.Video.Track.ClipItems = append(doc.Sequence.Media.Video.Track.ClipItems, video)
		doc.Sequence.Media.Audio.Track.ClipItems = append(doc.Sequence.Media.Audio.Track.ClipItems, audio)

		timelinePos += frames
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return services.Wrap(services.ErrInternal, "edl", "write legacy xml", "", err)
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return services.Wrap(services.ErrInternal, "edl", "encode legacy xml", "", err)
	}
	return nil
}

func legacyBool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}
