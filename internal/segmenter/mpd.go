package segmenter

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
)

// MPD is a static single-representation DASH manifest.
type MPD struct {
	XMLName                   xml.Name `xml:"MPD"`
	Xmlns                     string   `xml:"xmlns,attr"`
	XmlnsXSI                  string   `xml:"xmlns:xsi,attr"`
	SchemaLocation            string   `xml:"xsi:schemaLocation,attr"`
	Profiles                  string   `xml:"profiles,attr"`
	MaxSegmentDuration        string   `xml:"maxSegmentDuration,attr"`
	MinBufferTime             string   `xml:"minBufferTime,attr"`
	Type                      string   `xml:"type,attr"`
	MediaPresentationDuration string   `xml:"mediaPresentationDuration,attr"`
	Title                     string   `xml:"ProgramInformation>Title"`
	Period                    Period   `xml:"Period"`
}

// Period holds the single audio adaptation set.
type Period struct {
	Start         string        `xml:"start,attr"`
	ID            string        `xml:"id,attr"`
	AdaptationSet AdaptationSet `xml:"AdaptationSet"`
}

// AdaptationSet describes the audio stream.
type AdaptationSet struct {
	ContentType      string          `xml:"contentType,attr"`
	MimeType         string          `xml:"mimeType,attr"`
	Lang             string          `xml:"lang,attr"`
	SegmentAlignment bool            `xml:"segmentAlignment,attr"`
	StartWithSAP     int             `xml:"startWithSAP,attr"`
	Role             Descriptor      `xml:"Role"`
	SegmentTemplate  SegmentTemplate `xml:"SegmentTemplate"`
	Representation   Representation  `xml:"Representation"`
}

// Descriptor is a scheme/value pair.
type Descriptor struct {
	SchemeIDURI string `xml:"schemeIdUri,attr"`
	Value       string `xml:"value,attr"`
}

// SegmentTemplate addresses numbered segments.
type SegmentTemplate struct {
	StartNumber    int    `xml:"startNumber,attr"`
	Initialization string `xml:"initialization,attr"`
	Media          string `xml:"media,attr"`
	Duration       int    `xml:"duration,attr"`
}

// Representation is the encoded audio variant.
type Representation struct {
	ID                string     `xml:"id,attr"`
	Codecs            string     `xml:"codecs,attr"`
	Bandwidth         int        `xml:"bandwidth,attr"`
	AudioSamplingRate int        `xml:"audioSamplingRate,attr"`
	ChannelConfig     Descriptor `xml:"AudioChannelConfiguration"`
}

// ManifestParams are the per-track values of a manifest.
type ManifestParams struct {
	GameID         int64
	TrackIndex     int
	BaseURL        string // URL of the track directory, without trailing slash
	Duration       float64
	SegmentSeconds int
	SampleRate     int
	Bitrate        int
}

// NewMPD builds the manifest for one track.
func NewMPD(p ManifestParams) MPD {
	segment := "PT" + strconv.Itoa(p.SegmentSeconds) + "S"
	return MPD{
		Xmlns:                     "urn:mpeg:dash:schema:mpd:2011",
		XmlnsXSI:                  "http://www.w3.org/2001/XMLSchema-instance",
		SchemaLocation:            "urn:mpeg:dash:schema:mpd:2011 DASH-MPD.xsd",
		Profiles:                  "urn:mpeg:dash:profile:isoff-live:2011,http://dashif.org/guidelines/dash-if-simple",
		MaxSegmentDuration:        segment,
		MinBufferTime:             segment,
		Type:                      "static",
		MediaPresentationDuration: isoDuration(p.Duration),
		Title:                     fmt.Sprintf("Track %d of game %d", p.TrackIndex, p.GameID),
		Period: Period{
			Start: "PT0S",
			ID:    "standard_audio",
			AdaptationSet: AdaptationSet{
				ContentType:      "audio",
				MimeType:         "audio/webm",
				Lang:             "en",
				SegmentAlignment: true,
				StartWithSAP:     1,
				Role:             Descriptor{SchemeIDURI: "urn:mpeg:dash:role:2011", Value: "main"},
				SegmentTemplate: SegmentTemplate{
					StartNumber:    1,
					Initialization: p.BaseURL + "/segment_0000.webm",
					Media:          p.BaseURL + "/segment_$Number%04d$.webm",
					Duration:       p.SegmentSeconds,
				},
				Representation: Representation{
					ID:                "audio",
					Codecs:            "opus",
					Bandwidth:         p.Bitrate,
					AudioSamplingRate: p.SampleRate,
					ChannelConfig: Descriptor{
						SchemeIDURI: "urn:mpeg:dash:23003:3:audio_channel_configuration:2011",
						Value:       "2",
					},
				},
			},
		},
	}
}

// WriteFile writes the manifest with an XML declaration.
func (m MPD) WriteFile(path string) error {
	data, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append([]byte(xml.Header), data...)
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func isoDuration(seconds float64) string {
	return "PT" + strconv.FormatFloat(seconds, 'f', 3, 64) + "S"
}
