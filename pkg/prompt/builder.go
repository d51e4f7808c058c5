package prompt

import (
	"context"
	"log/slog"

	"github.com/dlukyanov/gemini-slack-bot/pkg/domain"
	"github.com/dlukyanov/gemini-slack-bot/pkg/logger"
)

type Normalizer interface {
	Normalize(ctx context.Context, ref domain.AttachmentRef) (domain.EncodedAttachment, error)
}

// placeholderText is sent when an event produces no usable content at
// all; the model still needs a non-empty turn to answer.
const placeholderText = "(no content)"

type builder struct {
	normalizer Normalizer
	maxTurns   int
	maxBytes   int
}

func NewBuilder(normalizer Normalizer, maxTurns, maxBytes int) *builder {
	return &builder{
		normalizer: normalizer,
		maxTurns:   maxTurns,
		maxBytes:   maxBytes,
	}
}

// Build merges resolved history with the current turn into one ordered
// model request. Context is trimmed oldest-first when it exceeds the turn
// or byte budget; the current turn is never trimmed. Attachment failures
// on a history turn degrade to a text-only turn, on the current turn they
// fail the build.
func (b *builder) Build(ctx context.Context, history []domain.ConversationTurn, current domain.ConversationTurn) (domain.ModelRequest, error) {
	kept := make([]domain.ConversationTurn, 0, len(history))
	for _, turn := range history {
		if turn.IsEmpty() {
			continue
		}
		kept = append(kept, turn)
	}
	if b.maxTurns > 0 && len(kept) > b.maxTurns-1 {
		kept = kept[len(kept)-(b.maxTurns-1):]
	}

	turns := make([]domain.ModelTurn, 0, len(kept)+1)
	for _, turn := range kept {
		turns = append(turns, b.encodeHistoryTurn(ctx, turn))
	}

	if !current.IsEmpty() {
		currentTurn, err := b.encodeCurrentTurn(ctx, current)
		if err != nil {
			return domain.ModelRequest{}, err
		}
		turns = append(turns, currentTurn)
	}

	if b.maxBytes > 0 {
		for len(turns) > 1 && totalSize(turns) > b.maxBytes {
			turns = turns[1:]
		}
	}

	if len(turns) == 0 {
		turns = []domain.ModelTurn{{Role: domain.RoleUser, Text: placeholderText}}
	}
	return domain.ModelRequest{Turns: turns}, nil
}

func (b *builder) encodeHistoryTurn(ctx context.Context, turn domain.ConversationTurn) domain.ModelTurn {
	encoded := domain.ModelTurn{Role: turn.Role, Text: turn.Text}
	for _, ref := range turn.Attachments {
		part, err := b.normalizer.Normalize(ctx, ref)
		if err != nil {
			slog.WarnContext(ctx, "skipping history attachment", "url", ref.SourceURL, logger.Err(err))
			continue
		}
		encoded.Attachments = append(encoded.Attachments, part)
	}
	return encoded
}

func (b *builder) encodeCurrentTurn(ctx context.Context, turn domain.ConversationTurn) (domain.ModelTurn, error) {
	encoded := domain.ModelTurn{Role: turn.Role, Text: turn.Text}
	for _, ref := range turn.Attachments {
		part, err := b.normalizer.Normalize(ctx, ref)
		if err != nil {
			return domain.ModelTurn{}, err
		}
		encoded.Attachments = append(encoded.Attachments, part)
	}
	return encoded, nil
}

func totalSize(turns []domain.ModelTurn) int {
	n := 0
	for _, t := range turns {
		n += t.Size()
	}
	return n
}
