package backend

import (
	"context"

	"github.com/quotevox/quotevox/internal/dialog"
)

// Submitter adapts the client to the dialogue layer's submission seam.
type Submitter struct {
	client *Client
}

// NewSubmitter wraps c for use as the dialog manager's submitter.
func NewSubmitter(c *Client) *Submitter {
	return &Submitter{client: c}
}

// SubmitAnswer implements [dialog.Submitter].
func (s *Submitter) SubmitAnswer(ctx context.Context, ans dialog.Answer) error {
	return s.client.SubmitAnswer(ctx, Submission{
		SessionID:  ans.SessionID,
		QuestionID: ans.QuestionID,
		Answer:     ans.Text,
		Source:     string(ans.Source),
		RawText:    ans.Raw,
		Confidence: ans.Confidence,
		AnsweredAt: ans.At,
	})
}

var _ dialog.Submitter = (*Submitter)(nil)
