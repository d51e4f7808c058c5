package domain

// ModelTurn is a ConversationTurn with its attachments fetched and
// encoded, ready to be sent to the model.
type ModelTurn struct {
	Role        Role
	Text        string
	Attachments []EncodedAttachment
}

func (t ModelTurn) Size() int {
	n := len(t.Text)
	for _, a := range t.Attachments {
		n += a.Size()
	}
	return n
}

// ModelRequest holds the full conversation to send, oldest turn first,
// ending with the turn built from the triggering event.
type ModelRequest struct {
	Turns []ModelTurn
}
