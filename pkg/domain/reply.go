package domain

// Reply is the formatted answer in Slack mrkdwn, pre-split into chunks
// that each fit in a single message. Chunks post in order.
type Reply struct {
	Chunks []string
}
