package domain

// RawMessage is one message from a thread history page, platform fields
// already reduced. System and bot-framework notices keep their SubType so
// the resolver can skip them.
type RawMessage struct {
	Timestamp   string
	SenderID    string
	IsBot       bool
	SubType     string
	Text        string
	Attachments []AttachmentRef
}
