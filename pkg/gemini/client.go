package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/dlukyanov/gemini-slack-bot/pkg/domain"
	"github.com/dlukyanov/gemini-slack-bot/pkg/logger"
)

// systemInstruction keeps the model's output in Slack's mrkdwn dialect
// so the formatter has less to repair.
const systemInstruction = `You are acting as a Slack bot. Format every response as Markdown.
Use *bold* for section titles, fenced code blocks for multi-line code,
backticks for inline code, "-" for unordered lists and "1." for ordered
lists. Keep responses concise and structured.`

const (
	defaultMaxRetries  = 3
	defaultBackoffBase = time.Second
)

type client struct {
	api         *genai.Client
	modelName   string
	timeout     time.Duration
	maxRetries  int
	backoffBase time.Duration
}

func NewClient(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is empty")
	}

	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &client{
		api:         api,
		modelName:   modelName,
		timeout:     timeout,
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
	}, nil
}

// Generate sends the request to Gemini and returns its answer. Transient
// failures are retried with exponential backoff; rejections are not. The
// request itself is never mutated.
func (c *client) Generate(ctx context.Context, request domain.ModelRequest) (domain.ModelResponse, error) {
	contents := toContents(request)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}

	var resp *genai.GenerateContentResponse
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = c.generateOnce(ctx, contents, config)
		if err == nil {
			break
		}
		if attempt >= c.maxRetries || !isTransient(err) {
			return domain.ModelResponse{}, classify(err)
		}

		wait := c.backoffBase << attempt
		slog.WarnContext(ctx, "retrying model request", "attempt", attempt+1, "wait", wait, logger.Err(err))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return domain.ModelResponse{}, classify(ctx.Err())
		}
	}

	return toResponse(resp), nil
}

func (c *client) generateOnce(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	callCtx, cancelFn := context.WithTimeout(ctx, c.timeout)
	defer cancelFn()

	return c.api.Models.GenerateContent(callCtx, c.modelName, contents, config)
}

func toContents(request domain.ModelRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(request.Turns))
	for _, turn := range request.Turns {
		role := genai.RoleUser
		if turn.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}

		var parts []*genai.Part
		if turn.Text != "" {
			parts = append(parts, genai.NewPartFromText(turn.Text))
		}
		for _, att := range turn.Attachments {
			if att.Kind == domain.AttachmentKindText {
				parts = append(parts, genai.NewPartFromText(att.Text))
				continue
			}
			parts = append(parts, genai.NewPartFromBytes(att.Data, att.MimeType))
		}

		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

func toResponse(resp *genai.GenerateContentResponse) domain.ModelResponse {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return domain.ModelResponse{FinishReason: domain.FinishBlocked}
	}
	if len(resp.Candidates) == 0 {
		return domain.ModelResponse{FinishReason: domain.FinishError}
	}

	response := domain.ModelResponse{Text: resp.Text()}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonStop, genai.FinishReasonUnspecified:
		response.FinishReason = domain.FinishComplete
	case genai.FinishReasonMaxTokens:
		response.FinishReason = domain.FinishTruncated
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		response.FinishReason = domain.FinishBlocked
	default:
		response.FinishReason = domain.FinishError
	}
	return response
}

// isTransient reports whether the failure is worth retrying: throttling
// and server-side errors are, everything else is not.
func isTransient(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 429 || apiErr.Code >= 500
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrModelTimeout, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && !isTransient(err) {
		return fmt.Errorf("%w: %s", domain.ErrModelRejected, apiErr.Status)
	}
	return fmt.Errorf("model request failed: %w", err)
}
