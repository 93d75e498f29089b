package youtube

import (
	"context"
	"encoding/json/v2"
	"fmt"
)

// maxCommentPages bounds comment pagination for very large threads.
const maxCommentPages = 50

type nextResponse struct {
	OnResponseReceivedEndpoints []struct {
		ReloadContinuationItemsCommand *commentItems `json:"reloadContinuationItemsCommand"`
		AppendContinuationItemsAction  *commentItems `json:"appendContinuationItemsAction"`
	} `json:"onResponseReceivedEndpoints"`
	FrameworkUpdates struct {
		EntityBatchUpdate struct {
			Mutations []struct {
				Payload struct {
					CommentEntityPayload *struct {
						Properties struct {
							CommentID string            `json:"commentId"`
							Content   rawAttributedText `json:"content"`
						} `json:"properties"`
					} `json:"commentEntityPayload"`
				} `json:"payload"`
			} `json:"mutations"`
		} `json:"entityBatchUpdate"`
	} `json:"frameworkUpdates"`
}

type commentItems struct {
	ContinuationItems []commentItem `json:"continuationItems"`
}

type commentItem struct {
	CommentThreadRenderer *struct {
		Comment *struct {
			CommentRenderer struct {
				CommentID   string `json:"commentId"`
				ContentText struct {
					Runs []struct {
						Text               string `json:"text"`
						NavigationEndpoint *struct {
							WatchEndpoint *rawWatchEndpoint `json:"watchEndpoint"`
						} `json:"navigationEndpoint"`
					} `json:"runs"`
				} `json:"contentText"`
			} `json:"commentRenderer"`
		} `json:"comment"`
		CommentViewModel *struct {
			CommentViewModel struct {
				CommentID string `json:"commentId"`
			} `json:"commentViewModel"`
		} `json:"commentViewModel"`
	} `json:"commentThreadRenderer"`
	ContinuationItemRenderer *rawContinuationRenderer `json:"continuationItemRenderer"`
}

// CommentPage is one page of top-level comments.
type CommentPage struct {
	Comments     []Comment
	Continuation string
}

// NextComments fetches the comment page behind a continuation token.
func (c *Client) NextComments(ctx context.Context, videoID, token string) (*CommentPage, error) {
	payload := map[string]any{
		"context":      webContext(),
		"continuation": token,
	}

	body, err := c.post(ctx, "next", payload)
	if err != nil {
		return nil, fmt.Errorf("youtube comments %s: %w", videoID, err)
	}
	page, err := parseCommentPage(body)
	if err != nil {
		return nil, fmt.Errorf("youtube comments %s: %w", videoID, err)
	}
	return page, nil
}

// Comments walks the comment pages of a video, starting at the token found
// on the watch page, and calls fn for each comment in order until fn returns
// false or no further page exists.
func (c *Client) Comments(ctx context.Context, videoID, token string, fn func(Comment) bool) error {
	for range maxCommentPages {
		if token == "" {
			return nil
		}
		page, err := c.NextComments(ctx, videoID, token)
		if err != nil {
			return err
		}
		if len(page.Comments) == 0 && page.Continuation == "" {
			return nil
		}
		for _, comment := range page.Comments {
			if !fn(comment) {
				return nil
			}
		}
		token = page.Continuation
	}
	c.logger.Warn("comment pagination stopped at page limit", "video_id", videoID, "pages", maxCommentPages)
	return nil
}

func parseCommentPage(body []byte) (*CommentPage, error) {
	var resp nextResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	page := &CommentPage{}
	endpoints := resp.OnResponseReceivedEndpoints
	if len(endpoints) == 0 {
		return page, nil
	}

	last := endpoints[len(endpoints)-1]
	items := last.ReloadContinuationItemsCommand
	if items == nil {
		items = last.AppendContinuationItemsAction
	}
	if items == nil {
		return page, nil
	}

	entities := make(map[string]*AttributedText)
	for _, m := range resp.FrameworkUpdates.EntityBatchUpdate.Mutations {
		if p := m.Payload.CommentEntityPayload; p != nil && p.Properties.CommentID != "" {
			entities[p.Properties.CommentID] = p.Properties.Content.toAttributed()
		}
	}

	for _, item := range items.ContinuationItems {
		thread := item.CommentThreadRenderer
		if thread == nil {
			continue
		}
		switch {
		case thread.Comment != nil:
			cr := thread.Comment.CommentRenderer
			comment := Comment{ID: cr.CommentID}
			for _, run := range cr.ContentText.Runs {
				tr := TextRun{Text: run.Text}
				if ne := run.NavigationEndpoint; ne != nil && ne.WatchEndpoint != nil {
					tr.StartSeconds = ne.WatchEndpoint.StartTimeSeconds
				}
				comment.Runs = append(comment.Runs, tr)
			}
			page.Comments = append(page.Comments, comment)
		case thread.CommentViewModel != nil:
			id := thread.CommentViewModel.CommentViewModel.CommentID
			if text, ok := entities[id]; ok {
				page.Comments = append(page.Comments, Comment{ID: id, Attributed: text})
			}
		}
	}

	if n := len(items.ContinuationItems); n > 0 {
		if cont := items.ContinuationItems[n-1].ContinuationItemRenderer; cont != nil {
			page.Continuation = cont.ContinuationEndpoint.ContinuationCommand.Token
		}
	}
	return page, nil
}
