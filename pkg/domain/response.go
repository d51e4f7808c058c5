package domain

type FinishReason string

const (
	FinishComplete  FinishReason = "complete"
	FinishTruncated FinishReason = "truncated"
	FinishBlocked   FinishReason = "blocked"
	FinishError     FinishReason = "error"
)

// ModelResponse is the model's answer in its native Markdown dialect.
type ModelResponse struct {
	Text         string
	FinishReason FinishReason
}
