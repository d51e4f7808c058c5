package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFetch                 = errors.New("attachment fetch failed")
	ErrUnsupportedAttachment = errors.New("unsupported attachment type")
	ErrAttachmentTooLarge    = errors.New("attachment too large")
	ErrHistoryFetch          = errors.New("thread history fetch failed")
	ErrModelTimeout          = errors.New("model request timed out")
	ErrModelRejected         = errors.New("model rejected the request")
	ErrFormatting            = errors.New("model output could not be formatted")
	ErrReplyPost             = errors.New("posting reply failed")
)

var categories = []struct {
	err  error
	name string
}{
	{ErrFetch, "attachment fetch failed"},
	{ErrUnsupportedAttachment, "unsupported attachment"},
	{ErrAttachmentTooLarge, "attachment too large"},
	{ErrHistoryFetch, "history unavailable"},
	{ErrModelTimeout, "model timeout"},
	{ErrModelRejected, "request rejected by the model"},
	{ErrFormatting, "malformed model output"},
	{ErrReplyPost, "reply delivery failed"},
}

// FailureCategory reduces any pipeline error to the short label shown to
// the user. Internal detail never reaches the chat reply.
func FailureCategory(err error) string {
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.name
		}
	}
	return "internal error"
}

// UserFacingError is the category-level reply posted when an event's
// pipeline fails.
func UserFacingError(err error) string {
	return fmt.Sprintf("the request could not be completed: %s", FailureCategory(err))
}
