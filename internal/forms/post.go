package forms

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"yatube/internal/media"
)

// GroupChecker looks up groups for the post form's group field.
type GroupChecker interface {
	Exists(ctx context.Context, id uint) (bool, error)
}

// PostForm is the create/edit post submission.
type PostForm struct {
	Text  string
	Group string

	// ImageName and ImageData are empty when no file was attached.
	ImageName string
	ImageData []byte

	// ClearImage drops the current image on edit when no new file is attached.
	ClearImage bool
}

// PostPayload is a validated post. The caller supplies the author.
type PostPayload struct {
	Text    string
	GroupID *uint
	Image   *media.Upload
}

// Validate checks the form. Failed validation returns FieldErrors; any other
// error comes from the group lookup.
func (f PostForm) Validate(ctx context.Context, groups GroupChecker, maxUploadBytes int64) (*PostPayload, error) {
	errs := FieldErrors{}
	payload := &PostPayload{Text: strings.TrimSpace(f.Text)}

	if payload.Text == "" {
		errs.Add("text", msgRequired)
	}

	if raw := strings.TrimSpace(f.Group); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			errs.Add("group", "Select a valid choice. That choice is not one of the available choices.")
		} else {
			exists, err := groups.Exists(ctx, uint(id))
			if err != nil {
				return nil, fmt.Errorf("check group %d: %w", id, err)
			}
			if !exists {
				errs.Add("group", "Select a valid choice. That choice is not one of the available choices.")
			} else {
				groupID := uint(id)
				payload.GroupID = &groupID
			}
		}
	}

	if f.ImageName != "" || len(f.ImageData) > 0 {
		upload, err := media.ValidateImage(f.ImageName, f.ImageData, maxUploadBytes)
		if err != nil {
			errs.Add("image", imageMessage(err))
		} else {
			payload.Image = upload
		}
	}

	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return payload, nil
}

func imageMessage(err error) string {
	msg := err.Error()
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
