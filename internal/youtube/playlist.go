package youtube

import (
	"bytes"
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type playlistItem struct {
	PlaylistVideoRenderer    *rawVideoRenderer        `json:"playlistVideoRenderer"`
	ContinuationItemRenderer *rawContinuationRenderer `json:"continuationItemRenderer"`
}

type playlistInitialData struct {
	Contents struct {
		TwoColumnBrowseResultsRenderer struct {
			Tabs []struct {
				TabRenderer struct {
					Content struct {
						SectionListRenderer struct {
							Contents []struct {
								ItemSectionRenderer struct {
									Contents []struct {
										PlaylistVideoListRenderer *struct {
											Contents []playlistItem `json:"contents"`
										} `json:"playlistVideoListRenderer"`
									} `json:"contents"`
								} `json:"itemSectionRenderer"`
							} `json:"contents"`
						} `json:"sectionListRenderer"`
					} `json:"content"`
				} `json:"tabRenderer"`
			} `json:"tabs"`
		} `json:"twoColumnBrowseResultsRenderer"`
	} `json:"contents"`
	Metadata struct {
		PlaylistMetadataRenderer struct {
			Title string `json:"title"`
		} `json:"playlistMetadataRenderer"`
	} `json:"metadata"`
}

type browseResponse struct {
	OnResponseReceivedActions []struct {
		AppendContinuationItemsAction struct {
			ContinuationItems []playlistItem `json:"continuationItems"`
		} `json:"appendContinuationItemsAction"`
	} `json:"onResponseReceivedActions"`
}

// PlaylistPage fetches a playlist page: its title, the first page of
// entries and the continuation token for the rest.
func (c *Client) PlaylistPage(ctx context.Context, listID string) (*Playlist, error) {
	page, err := c.getPage(ctx, "/playlist?list="+url.QueryEscape(listID))
	if err != nil {
		return nil, fmt.Errorf("youtube playlist %s: %w", listID, err)
	}
	return parsePlaylistPage(listID, page)
}

// Browse fetches the next page of a playlist listing.
func (c *Client) Browse(ctx context.Context, pl *Playlist, token string) (*BrowsePage, error) {
	var clientCtx any = webContext()
	if len(pl.clientContext) > 0 {
		clientCtx = jsontext.Value(pl.clientContext)
	}
	payload := map[string]any{
		"context":      clientCtx,
		"continuation": token,
	}

	body, err := c.post(ctx, "browse", payload)
	if err != nil {
		return nil, fmt.Errorf("youtube browse %s: %w", pl.ID, err)
	}

	var resp browseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("youtube browse %s: parse response: %w", pl.ID, err)
	}
	if len(resp.OnResponseReceivedActions) == 0 {
		return &BrowsePage{}, nil
	}

	entries, next := collectPlaylistItems(resp.OnResponseReceivedActions[0].AppendContinuationItemsAction.ContinuationItems)
	return &BrowsePage{Entries: entries, Continuation: next}, nil
}

func parsePlaylistPage(listID string, page []byte) (*Playlist, error) {
	raw, err := extractInitialData(page)
	if err != nil {
		return nil, fmt.Errorf("youtube playlist %s: %w", listID, err)
	}

	var data playlistInitialData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("youtube playlist %s: parse initial data: %w", listID, err)
	}

	var items []playlistItem
	found := false
	if tabs := data.Contents.TwoColumnBrowseResultsRenderer.Tabs; len(tabs) > 0 {
		sections := tabs[0].TabRenderer.Content.SectionListRenderer.Contents
		if len(sections) > 0 {
			for _, content := range sections[0].ItemSectionRenderer.Contents {
				if content.PlaylistVideoListRenderer != nil {
					items = content.PlaylistVideoListRenderer.Contents
					found = true
					break
				}
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("youtube playlist %s: no video list in page", listID)
	}

	entries, next := collectPlaylistItems(items)

	title := pageTitle(page)
	if title == "" {
		title = data.Metadata.PlaylistMetadataRenderer.Title
	}

	return &Playlist{
		ID:            listID,
		Title:         title,
		Entries:       entries,
		Continuation:  next,
		clientContext: extractObjectAfter(page, innertubeContextMarker),
	}, nil
}

func collectPlaylistItems(items []playlistItem) ([]PlaylistEntry, string) {
	entries := make([]PlaylistEntry, 0, len(items))
	var next string
	for i := range items {
		if v := items[i].PlaylistVideoRenderer; v != nil && v.VideoID != "" {
			entries = append(entries, PlaylistEntry{
				VideoID:  v.VideoID,
				Title:    v.Title.firstRun(),
				Duration: v.duration(),
			})
		}
		if cont := items[i].ContinuationItemRenderer; cont != nil {
			next = cont.ContinuationEndpoint.ContinuationCommand.Token
		}
	}
	return entries, next
}

// pageTitle reads the playlist title from the HTML head.
func pageTitle(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og
		}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	return strings.TrimSpace(strings.TrimSuffix(title, "- YouTube"))
}
