package youtube

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
)

type watchInitialData struct {
	Contents struct {
		TwoColumnWatchNextResults struct {
			Results struct {
				Results struct {
					Contents []watchContent `json:"contents"`
				} `json:"results"`
			} `json:"results"`
		} `json:"twoColumnWatchNextResults"`
	} `json:"contents"`
	PlayerOverlays struct {
		PlayerOverlayRenderer struct {
			DecoratedPlayerBarRenderer struct {
				DecoratedPlayerBarRenderer struct {
					PlayerBar struct {
						MultiMarkersPlayerBarRenderer struct {
							MarkersMap []struct {
								Value struct {
									Chapters []struct {
										ChapterRenderer struct {
											Title                rawText `json:"title"`
											TimeRangeStartMillis float64 `json:"timeRangeStartMillis"`
										} `json:"chapterRenderer"`
									} `json:"chapters"`
								} `json:"value"`
							} `json:"markersMap"`
						} `json:"multiMarkersPlayerBarRenderer"`
					} `json:"playerBar"`
				} `json:"decoratedPlayerBarRenderer"`
			} `json:"decoratedPlayerBarRenderer"`
		} `json:"playerOverlayRenderer"`
	} `json:"playerOverlays"`
}

type watchContent struct {
	VideoSecondaryInfoRenderer *struct {
		AttributedDescription *rawAttributedText `json:"attributedDescription"`
	} `json:"videoSecondaryInfoRenderer"`
	ItemSectionRenderer *struct {
		Contents []struct {
			ContinuationItemRenderer *rawContinuationRenderer `json:"continuationItemRenderer"`
		} `json:"contents"`
	} `json:"itemSectionRenderer"`
}

// WatchPage fetches a video's watch page and extracts markers, the
// attributed description and the comments continuation token.
func (c *Client) WatchPage(ctx context.Context, videoID string) (*WatchData, error) {
	page, err := c.getPage(ctx, "/watch?v="+url.QueryEscape(videoID))
	if err != nil {
		return nil, fmt.Errorf("youtube watch %s: %w", videoID, err)
	}
	return parseWatchPage(videoID, page)
}

func parseWatchPage(videoID string, page []byte) (*WatchData, error) {
	raw, err := extractInitialData(page)
	if err != nil {
		return nil, fmt.Errorf("youtube watch %s: %w", videoID, err)
	}

	var data watchInitialData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("youtube watch %s: parse initial data: %w", videoID, err)
	}

	out := &WatchData{VideoID: videoID}

	markers := data.PlayerOverlays.PlayerOverlayRenderer.DecoratedPlayerBarRenderer.
		DecoratedPlayerBarRenderer.PlayerBar.MultiMarkersPlayerBarRenderer.MarkersMap
	if len(markers) > 0 {
		for _, ch := range markers[0].Value.Chapters {
			out.Markers = append(out.Markers, Marker{
				Title:       ch.ChapterRenderer.Title.String(),
				StartMillis: ch.ChapterRenderer.TimeRangeStartMillis,
			})
		}
	}

	contents := data.Contents.TwoColumnWatchNextResults.Results.Results.Contents
	for _, content := range contents {
		if info := content.VideoSecondaryInfoRenderer; info != nil && info.AttributedDescription != nil {
			out.Description = info.AttributedDescription.toAttributed()
			break
		}
	}

	// The comments section is the last item section of the results column.
	if n := len(contents); n > 0 {
		if section := contents[n-1].ItemSectionRenderer; section != nil && len(section.Contents) > 0 {
			if cont := section.Contents[0].ContinuationItemRenderer; cont != nil {
				out.CommentsToken = cont.ContinuationEndpoint.ContinuationCommand.Token
			}
		}
	}

	return out, nil
}
