package history

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dlukyanov/gemini-slack-bot/pkg/domain"
)

type ThreadAPI interface {
	ThreadReplies(ctx context.Context, channelID, threadTS, cursor string, limit int) ([]domain.RawMessage, string, error)
}

// mentionPattern matches Slack mention tokens such as <@U12345>, which
// carry no conversational content once the bot is addressed.
var mentionPattern = regexp.MustCompile(`<@[^>]+>\s*`)

// subtypes that still carry conversational content; everything else is a
// system or bot-framework notice and contributes no turn.
var contentSubtypes = map[string]bool{
	"":                 true,
	"bot_message":      true,
	"file_share":       true,
	"thread_broadcast": true,
}

type resolver struct {
	api      ThreadAPI
	pageSize int
}

func NewResolver(api ThreadAPI, pageSize int) *resolver {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &resolver{
		api:      api,
		pageSize: pageSize,
	}
}

// Resolve fetches the triggering message's thread and converts the
// messages preceding it to role-tagged turns, oldest first. Pagination is
// followed to exhaustion; the result does not depend on page size. The
// triggering message itself is returned separately as trigger: some event
// payloads omit the shared files that the thread fetch does surface, and
// the caller merges them into the current turn.
func (r *resolver) Resolve(ctx context.Context, event domain.MessageEvent) ([]domain.ConversationTurn, domain.ConversationTurn, error) {
	var raw []domain.RawMessage
	var trigger domain.ConversationTurn
	seen := make(map[string]bool)

	cursor := ""
	for {
		page, nextCursor, err := r.api.ThreadReplies(ctx, event.ChannelID, event.ThreadTS, cursor, r.pageSize)
		if err != nil {
			return nil, trigger, fmt.Errorf("%w: %v", domain.ErrHistoryFetch, err)
		}
		for _, msg := range page {
			if seen[msg.Timestamp] {
				continue
			}
			seen[msg.Timestamp] = true
			raw = append(raw, msg)
		}
		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	sort.SliceStable(raw, func(i, j int) bool {
		return tsValue(raw[i].Timestamp) < tsValue(raw[j].Timestamp)
	})

	turns := make([]domain.ConversationTurn, 0, len(raw))
	for _, msg := range raw {
		if !contentSubtypes[msg.SubType] {
			continue
		}

		turn := domain.ConversationTurn{
			Role:        domain.RoleUser,
			Text:        CleanText(msg.Text),
			Attachments: msg.Attachments,
			Timestamp:   msg.Timestamp,
		}
		if msg.IsBot {
			turn.Role = domain.RoleAssistant
		}
		if msg.Timestamp == event.MessageTS {
			// the triggering message becomes the current turn, not history
			trigger = turn
			continue
		}
		if turn.IsEmpty() {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, trigger, nil
}

// CleanText strips mention tokens and surrounding whitespace from a
// message before it becomes turn text.
func CleanText(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

func tsValue(ts string) float64 {
	v, _ := strconv.ParseFloat(ts, 64)
	return v
}
