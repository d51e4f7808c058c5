package domain

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one role-tagged unit of thread content as resolved
// from Slack, before attachments are fetched and encoded.
type ConversationTurn struct {
	Role        Role
	Text        string
	Attachments []AttachmentRef
	Timestamp   string // Slack message ts, the chronological ordering key
}

func (t ConversationTurn) IsEmpty() bool {
	return t.Text == "" && len(t.Attachments) == 0
}
