package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/dlukyanov/gemini-slack-bot/pkg/api/response"
	"github.com/dlukyanov/gemini-slack-bot/pkg/domain"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.MessageEvent)
}

type WorkspaceGate interface {
	IsAllowed(workspaceID string) bool
}

type events struct {
	gate       WorkspaceGate
	dispatcher Dispatcher
	writer     response.JSONResponseWriter
}

func NewEvents(gate WorkspaceGate, dispatcher Dispatcher) *events {
	return &events{
		gate:       gate,
		dispatcher: dispatcher,
		writer:     response.JSONResponseWriter{},
	}
}

// HandleEvent receives Slack Events API deliveries. It acknowledges
// within Slack's delivery timeout and hands the event to the pipeline in
// the background; dedup happens on the platform event ID, so the retry
// header short-circuit here is only an early exit.
func (e *events) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Slack-Retry-Num") != "" {
		e.writer.WriteErrorResponse(w, http.StatusNotFound, "ignored_slack_retry")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		e.writer.WriteErrorResponse(w, http.StatusBadRequest, "reading body failed")
		return
	}

	outer, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		e.writer.WriteErrorResponse(w, http.StatusBadRequest, "unparseable event")
		return
	}

	switch outer.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			e.writer.WriteErrorResponse(w, http.StatusBadRequest, "unparseable challenge")
			return
		}
		e.writer.WriteSuccessResponse(w, map[string]string{"challenge": challenge.Challenge})

	case slackevents.CallbackEvent:
		if !e.gate.IsAllowed(outer.TeamID) {
			e.writer.WriteErrorResponse(w, http.StatusForbidden, "workspace_not_allowed")
			return
		}

		event, ok := toMessageEvent(outer)

		// ack first so Slack does not redeliver while the model runs
		w.WriteHeader(http.StatusOK)
		if !ok {
			return
		}

		go e.dispatcher.Dispatch(context.WithoutCancel(r.Context()), event)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func toMessageEvent(outer slackevents.EventsAPIEvent) (domain.MessageEvent, bool) {
	callback, ok := outer.Data.(*slackevents.EventsAPICallbackEvent)
	if !ok {
		return domain.MessageEvent{}, false
	}

	switch ev := outer.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if ev.SubType != "" && ev.SubType != "file_share" {
			return domain.MessageEvent{}, false
		}
		return domain.MessageEvent{
			EventID:     callback.EventID,
			WorkspaceID: outer.TeamID,
			ChannelID:   ev.Channel,
			ThreadTS:    threadTS(ev.ThreadTimeStamp, ev.TimeStamp),
			MessageTS:   ev.TimeStamp,
			SenderID:    ev.User,
			IsBot:       ev.BotID != "",
			Text:        ev.Text,
			Attachments: toAttachmentRefs(ev.Message.Files),
		}, true

	case *slackevents.AppMentionEvent:
		return domain.MessageEvent{
			EventID:     callback.EventID,
			WorkspaceID: outer.TeamID,
			ChannelID:   ev.Channel,
			ThreadTS:    threadTS(ev.ThreadTimeStamp, ev.TimeStamp),
			MessageTS:   ev.TimeStamp,
			SenderID:    ev.User,
			IsBot:       ev.BotID != "",
			Text:        ev.Text,
		}, true

	default:
		slog.Debug("ignoring event type", "type", outer.InnerEvent.Type)
		return domain.MessageEvent{}, false
	}
}

func threadTS(threadTS, messageTS string) string {
	if threadTS != "" {
		return threadTS
	}
	return messageTS
}

func toAttachmentRefs(files []slack.File) []domain.AttachmentRef {
	var refs []domain.AttachmentRef
	for _, f := range files {
		if f.URLPrivateDownload == "" {
			continue
		}
		refs = append(refs, domain.AttachmentRef{
			SourceURL: f.URLPrivateDownload,
			MimeType:  f.Mimetype,
			Name:      f.Name,
		})
	}
	return refs
}
