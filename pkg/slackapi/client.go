package slackapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/slack-go/slack"

	"github.com/dlukyanov/gemini-slack-bot/pkg/domain"
	"github.com/dlukyanov/gemini-slack-bot/pkg/logger"
)

type client struct {
	api       *slack.Client
	hc        *retryablehttp.Client
	token     string
	botUserID string
}

func NewClient(token string) (*client, error) {
	api := slack.New(token)

	identity, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack auth test: %w", err)
	}
	slog.Info("authorized on slack", "account", identity.User, "user_id", identity.UserID)

	hc := retryablehttp.NewClient()
	hc.RetryMax = 1
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.Logger = nil

	return &client{
		api:       api,
		hc:        hc,
		token:     token,
		botUserID: identity.UserID,
	}, nil
}

func (c *client) BotUserID() string {
	return c.botUserID
}

// ThreadReplies fetches one page of a thread's history. The returned
// cursor is empty once the thread is exhausted.
func (c *client) ThreadReplies(ctx context.Context, channelID, threadTS, cursor string, limit int) ([]domain.RawMessage, string, error) {
	msgs, hasMore, nextCursor, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Cursor:    cursor,
		Limit:     limit,
	})
	if err != nil {
		return nil, "", fmt.Errorf("fetching thread replies: %w", err)
	}
	if !hasMore {
		nextCursor = ""
	}

	raw := make([]domain.RawMessage, 0, len(msgs))
	for _, msg := range msgs {
		raw = append(raw, toRawMessage(msg))
	}
	return raw, nextCursor, nil
}

func toRawMessage(msg slack.Message) domain.RawMessage {
	text := msg.Text
	if text == "" {
		text = blockText(msg.Blocks)
	}

	var attachments []domain.AttachmentRef
	for _, f := range msg.Files {
		if f.URLPrivateDownload == "" {
			continue
		}
		attachments = append(attachments, domain.AttachmentRef{
			SourceURL: f.URLPrivateDownload,
			MimeType:  f.Mimetype,
			Name:      f.Name,
		})
	}

	return domain.RawMessage{
		Timestamp:   msg.Timestamp,
		SenderID:    msg.User,
		IsBot:       msg.BotID != "" || msg.SubType == "bot_message",
		SubType:     msg.SubType,
		Text:        text,
		Attachments: attachments,
	}
}

// blockText recovers visible text from layout blocks for messages whose
// top-level text field is empty.
func blockText(blocks slack.Blocks) string {
	var text string
	for _, block := range blocks.BlockSet {
		section, ok := block.(*slack.SectionBlock)
		if !ok || section.Text == nil {
			continue
		}
		if text != "" {
			text += "\n"
		}
		text += section.Text.Text
	}
	return text
}

// DownloadFile performs the authenticated GET for a shared file. The
// underlying client retries once with backoff on transient failure.
func (c *client) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if closeErr := body.Close(); closeErr != nil {
			slog.Error("closing body", logger.Err(closeErr))
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}

// PostReply posts the reply chunks into the thread, in order. A failed
// chunk aborts the rest so a partial reply is never reordered.
func (c *client) PostReply(ctx context.Context, channelID, threadTS string, chunks []string) error {
	for _, chunk := range chunks {
		_, _, err := c.api.PostMessageContext(ctx, channelID,
			slack.MsgOptionText(chunk, false),
			slack.MsgOptionTS(threadTS),
		)
		if err != nil {
			return fmt.Errorf("posting message: %w", err)
		}
	}
	return nil
}
