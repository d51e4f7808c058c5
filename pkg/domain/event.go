package domain

// MessageEvent is one inbound Slack Events API delivery, reduced to the
// fields the pipeline needs. ThreadTS equals MessageTS for messages
// posted outside a thread, so a reply always lands in the right place.
type MessageEvent struct {
	EventID     string
	WorkspaceID string
	ChannelID   string
	ThreadTS    string
	MessageTS   string
	SenderID    string
	IsBot       bool
	Text        string
	Attachments []AttachmentRef
}
