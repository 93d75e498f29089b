package youtube

import "strings"

// ItemKind classifies a search result entry.
type ItemKind int

const (
	// KindOther is any entry that is neither a video nor a playlist (shelves,
	// ads, channels). It still occupies a position in the result list.
	KindOther ItemKind = iota
	KindVideo
	KindPlaylist
)

// SearchItem is one entry of a search result page, in page order.
type SearchItem struct {
	Kind     ItemKind
	ID       string
	Title    string
	Duration string
}

// TextRun is one run of formatted comment text. StartSeconds is set when
// the run links to a position in the video.
type TextRun struct {
	Text         string
	StartSeconds *float64
}

// TimeLink is a jump-to-time annotation inside attributed text, with
// offsets in UTF-16 code units.
type TimeLink struct {
	StartIndex   int
	Length       int
	StartSeconds float64
}

// AttributedText is a flat text with time links, the format of video
// descriptions and of the newer comment payloads.
type AttributedText struct {
	Content string
	Links   []TimeLink
}

// Marker is an embedded chapter marker from the player bar.
type Marker struct {
	Title       string
	StartMillis float64
}

// WatchData is what the chapter extractor needs from a watch page.
type WatchData struct {
	VideoID     string
	Markers     []Marker
	Description *AttributedText
	// CommentsToken is empty when comments are disabled.
	CommentsToken string
}

// Comment is one top-level comment. Exactly one of Runs or Attributed is set.
type Comment struct {
	ID         string
	Runs       []TextRun
	Attributed *AttributedText
}

// PlaylistEntry is one video of a playlist listing.
type PlaylistEntry struct {
	VideoID  string
	Title    string
	Duration string
}

// Playlist is the first page of a playlist listing.
type Playlist struct {
	ID           string
	Title        string
	Entries      []PlaylistEntry
	Continuation string
	// clientContext is the page's innertube context, reused for browse calls.
	clientContext []byte
}

// BrowsePage is one continuation page of a playlist listing.
type BrowsePage struct {
	Entries      []PlaylistEntry
	Continuation string
}

// Raw payload shapes. Only the fields read are declared.

type rawText struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
	Content string `json:"content"`
}

func (t rawText) String() string {
	if t.SimpleText != "" {
		return t.SimpleText
	}
	if t.Content != "" {
		return t.Content
	}
	var b strings.Builder
	for _, r := range t.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

func (t rawText) firstRun() string {
	if len(t.Runs) > 0 {
		return t.Runs[0].Text
	}
	return t.String()
}

type rawWatchEndpoint struct {
	StartTimeSeconds *float64 `json:"startTimeSeconds"`
}

type rawThumbnailOverlay struct {
	ThumbnailOverlayTimeStatusRenderer *struct {
		Text rawText `json:"text"`
	} `json:"thumbnailOverlayTimeStatusRenderer"`
}

type rawVideoRenderer struct {
	VideoID           string                `json:"videoId"`
	Title             rawText               `json:"title"`
	LengthText        *rawText              `json:"lengthText"`
	ThumbnailOverlays []rawThumbnailOverlay `json:"thumbnailOverlays"`
}

// duration prefers the explicit length text and falls back to the thumbnail
// overlay badge.
func (v *rawVideoRenderer) duration() string {
	if v.LengthText != nil {
		if s := v.LengthText.String(); s != "" {
			return s
		}
	}
	for _, o := range v.ThumbnailOverlays {
		if o.ThumbnailOverlayTimeStatusRenderer != nil {
			return o.ThumbnailOverlayTimeStatusRenderer.Text.String()
		}
	}
	return ""
}

type rawContinuationRenderer struct {
	ContinuationEndpoint struct {
		ContinuationCommand struct {
			Token string `json:"token"`
		} `json:"continuationCommand"`
	} `json:"continuationEndpoint"`
}

type rawAttributedText struct {
	Content     string `json:"content"`
	CommandRuns []struct {
		StartIndex int `json:"startIndex"`
		Length     int `json:"length"`
		OnTap      struct {
			InnertubeCommand struct {
				WatchEndpoint *rawWatchEndpoint `json:"watchEndpoint"`
			} `json:"innertubeCommand"`
		} `json:"onTap"`
	} `json:"commandRuns"`
}

func (a *rawAttributedText) toAttributed() *AttributedText {
	out := &AttributedText{Content: a.Content}
	for _, run := range a.CommandRuns {
		we := run.OnTap.InnertubeCommand.WatchEndpoint
		if we == nil || we.StartTimeSeconds == nil {
			continue
		}
		out.Links = append(out.Links, TimeLink{
			StartIndex:   run.StartIndex,
			Length:       run.Length,
			StartSeconds: *we.StartTimeSeconds,
		})
	}
	return out
}
