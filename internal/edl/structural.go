package edl

import (
	"encoding/xml"
	"fmt"
	"io"

	"autocut/internal/services"
	"autocut/internal/timeline"
)

// Structural XML (fcpxml version 1.9). Resources declare the format
// (rational frame duration) and the source asset; the sequence spine
// holds one asset-clip per kept cut. All times are whole multiples of
// the frame duration, emitted as rational seconds reduced to lowest
// terms; decimal seconds are never emitted.

type structuralDocument struct {
	XMLName   xml.Name            `xml:"fcpxml"`
	Version   string              `xml:"version,attr"`
	Resources structuralResources `xml:"resources"`
	Library   structuralLibrary   `xml:"library"`
}

type structuralResources struct {
	Format structuralFormat `xml:"format"`
	Asset  structuralAsset  `xml:"asset"`
}

type structuralFormat struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr"`
	FrameDuration string `xml:"frameDuration,attr"`
	Width         int    `xml:"width,attr"`
	Height        int    `xml:"height,attr"`
}

type structuralAsset struct {
	ID       string             `xml:"id,attr"`
	Name     string             `xml:"name,attr"`
	Start    string             `xml:"start,attr"`
	Duration string             `xml:"duration,attr"`
	HasVideo string             `xml:"hasVideo,attr"`
	HasAudio string             `xml:"hasAudio,attr"`
	MediaRep structuralMediaRep `xml:"media-rep"`
}

type structuralMediaRep struct {
	Kind string `xml:"kind,attr"`
	Src  string `xml:"src,attr"`
}

type structuralLibrary struct {
	Event structuralEvent `xml:"event"`
}

type structuralEvent struct {
	Name    string            `xml:"name,attr"`
	Project structuralProject `xml:"project"`
}

type structuralProject struct {
	Name     string             `xml:"name,attr"`
	Sequence structuralSequence `xml:"sequence"`
}

type structuralSequence struct {
	Format   string          `xml:"format,attr"`
	Duration string          `xml:"duration,attr"`
	Spine    structuralSpine `xml:"spine"`
}

type structuralSpine struct {
	Clips []structuralAssetClip `xml:"asset-clip"`
}

type structuralAssetClip struct {
	Name     string `xml:"name,attr"`
	Ref      string `xml:"ref,attr"`
	Offset   string `xml:"offset,attr"`
	Duration string `xml:"duration,attr"`
	Start    string `xml:"start,attr"`
	Format   string `xml:"format,attr"`
}

// WriteStructural serializes the cut list as structural editor XML.
func WriteStructural(w io.Writer, src Source, cuts []timeline.Cut) error {
	if err := validate(src, cuts); err != nil {
		return err
	}

	frame := FrameDuration(src.FPS)
	stem := src.Stem()
	totalFrames := timeline.TotalFrames(cuts)
	sourceFrames := timeline.FrameIndex(src.DurationSeconds, src.FPS)

	doc := structuralDocument{
		Version: "1.9",
		Resources: structuralResources{
			Format: structuralFormat{
				ID:            "r1",
				Name:          formatName(src.FPS),
				FrameDuration: frame.String(),
				Width:         1920,
				Height:        1080,
			},
			Asset: structuralAsset{
				ID:       "r2",
				Name:     stem,
				Start:    "0s",
				Duration: frame.MulFrames(sourceFrames).String(),
				HasVideo: "1",
				HasAudio: "1",
				MediaRep: structuralMediaRep{
					Kind: "original-media",
					Src:  src.PathURL(),
				},
			},
		},
		Library: structuralLibrary{
			Event: structuralEvent{
				Name: "Autocut",
				Project: structuralProject{
					Name: stem,
					Sequence: structuralSequence{
						Format:   "r1",
						Duration: frame.MulFrames(totalFrames).String(),
					},
				},
			},
		},
	}

	timelineFrames := 0
	for i, cut := range cuts {
		frames := cut.FrameCount()
		doc.Library.Event.Project.Sequence.Spine.Clips = append(
			doc.Library.Event.Project.Sequence.Spine.Clips,
			structuralAssetClip{
				Name:     fmt.Sprintf("%s segment %d", stem, i+1),
				Ref:      "r2",
				Offset:   frame.MulFrames(timelineFrames).String(),
				Duration: frame.MulFrames(frames).String(),
				Start:    frame.MulFrames(cut.InFrame).String(),
				Format:   "r1",
			},
		)
		timelineFrames += frames
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return services.Wrap(services.ErrInternal, "edl", "write structural xml", "", err)
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return services.Wrap(services.ErrInternal, "edl", "encode structural xml", "", err)
	}
	return nil
}

func formatName(fps float64) string {
	if IsNTSC(fps) {
		return fmt.Sprintf("FFVideoFormat1080p%.2f", fps)
	}
	return fmt.Sprintf("FFVideoFormat1080p%.0f", fps)
}
