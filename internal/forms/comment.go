package forms

import "strings"

// CommentForm is a comment submission on a post.
type CommentForm struct {
	Text string
}

// CommentPayload is a validated comment. The caller supplies post and author.
type CommentPayload struct {
	Text string
}

// Validate returns the payload or FieldErrors.
func (f CommentForm) Validate() (*CommentPayload, error) {
	text := strings.TrimSpace(f.Text)
	if text == "" {
		errs := FieldErrors{}
		errs.Add("text", msgRequired)
		return nil, errs
	}
	return &CommentPayload{Text: text}, nil
}
