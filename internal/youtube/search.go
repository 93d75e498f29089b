package youtube

import (
	"context"
	"encoding/json/v2"
	"fmt"
)

type searchResponse struct {
	Contents struct {
		TwoColumnSearchResultsRenderer struct {
			PrimaryContents struct {
				SectionListRenderer struct {
					Contents []struct {
						ItemSectionRenderer *struct {
							Contents []searchEntry `json:"contents"`
						} `json:"itemSectionRenderer"`
					} `json:"contents"`
				} `json:"sectionListRenderer"`
			} `json:"primaryContents"`
		} `json:"twoColumnSearchResultsRenderer"`
	} `json:"contents"`
}

type searchEntry struct {
	VideoRenderer    *rawVideoRenderer `json:"videoRenderer"`
	PlaylistRenderer *struct {
		PlaylistID string  `json:"playlistId"`
		Title      rawText `json:"title"`
	} `json:"playlistRenderer"`
	LockupViewModel *struct {
		ContentID   string `json:"contentId"`
		ContentType string `json:"contentType"`
		Metadata    struct {
			LockupMetadataViewModel struct {
				Title rawText `json:"title"`
			} `json:"lockupMetadataViewModel"`
		} `json:"metadata"`
	} `json:"lockupViewModel"`
}

const lockupPlaylist = "LOCKUP_CONTENT_TYPE_PLAYLIST"

// Search runs a search query and returns the first result section in page
// order, including entries that are neither videos nor playlists.
func (c *Client) Search(ctx context.Context, query string) ([]SearchItem, error) {
	payload := map[string]any{
		"context": webContext(),
		"query":   query,
	}

	body, err := c.post(ctx, "search", payload)
	if err != nil {
		return nil, fmt.Errorf("youtube search %q: %w", query, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("youtube search %q: parse response: %w", query, err)
	}

	for _, section := range resp.Contents.TwoColumnSearchResultsRenderer.PrimaryContents.SectionListRenderer.Contents {
		if section.ItemSectionRenderer == nil || len(section.ItemSectionRenderer.Contents) == 0 {
			continue
		}
		entries := section.ItemSectionRenderer.Contents
		items := make([]SearchItem, 0, len(entries))
		for i := range entries {
			items = append(items, entries[i].item())
		}
		return items, nil
	}
	return nil, fmt.Errorf("youtube search %q: no result section", query)
}

func (e *searchEntry) item() SearchItem {
	switch {
	case e.VideoRenderer != nil && e.VideoRenderer.VideoID != "":
		return SearchItem{
			Kind:     KindVideo,
			ID:       e.VideoRenderer.VideoID,
			Title:    e.VideoRenderer.Title.firstRun(),
			Duration: e.VideoRenderer.duration(),
		}
	case e.PlaylistRenderer != nil && e.PlaylistRenderer.PlaylistID != "":
		return SearchItem{
			Kind:  KindPlaylist,
			ID:    e.PlaylistRenderer.PlaylistID,
			Title: e.PlaylistRenderer.Title.String(),
		}
	case e.LockupViewModel != nil && e.LockupViewModel.ContentType == lockupPlaylist:
		return SearchItem{
			Kind:  KindPlaylist,
			ID:    e.LockupViewModel.ContentID,
			Title: e.LockupViewModel.Metadata.LockupMetadataViewModel.Title.String(),
		}
	default:
		return SearchItem{Kind: KindOther}
	}
}
