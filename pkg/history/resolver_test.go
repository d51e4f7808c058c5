package history

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"testing"

	"github.com/dlukyanov/gemini-slack-bot/pkg/domain"
)

type fakeThreadAPI struct {
	messages []domain.RawMessage
	err      error
	calls    int
}

func (f *fakeThreadAPI) ThreadReplies(_ context.Context, _, _, cursor string, limit int) ([]domain.RawMessage, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}

	offset := 0
	if cursor != "" {
		offset, _ = strconv.Atoi(cursor)
	}
	end := offset + limit
	if end > len(f.messages) {
		end = len(f.messages)
	}

	next := ""
	if end < len(f.messages) {
		next = strconv.Itoa(end)
	}
	return f.messages[offset:end], next, nil
}

func userMessage(ts, text string) domain.RawMessage {
	return domain.RawMessage{Timestamp: ts, SenderID: "U1", Text: text}
}

func testEvent() domain.MessageEvent {
	return domain.MessageEvent{
		EventID:   "Ev1",
		ChannelID: "C1",
		ThreadTS:  "100.000000",
		MessageTS: "105.000000",
	}
}

func TestResolveOrderIndependentOfPageSize(t *testing.T) {
	messages := []domain.RawMessage{
		userMessage("100.000000", "first"),
		{Timestamp: "101.000000", IsBot: true, SubType: "bot_message", Text: "second"},
		userMessage("102.000000", "third"),
		userMessage("103.000000", "fourth"),
		userMessage("104.000000", "fifth"),
	}

	var results [][]domain.ConversationTurn
	for _, pageSize := range []int{1, 2, 50} {
		r := NewResolver(&fakeThreadAPI{messages: messages}, pageSize)
		turns, _, err := r.Resolve(context.Background(), testEvent())
		if err != nil {
			t.Fatalf("Resolve with page size %d: %v", pageSize, err)
		}
		results = append(results, turns)
	}

	for i := 1; i < len(results); i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Errorf("results differ between page sizes:\n%v\n%v", results[0], results[i])
		}
	}

	turns := results[0]
	if len(turns) != 5 {
		t.Fatalf("got %d turns, want 5", len(turns))
	}
	for i := 1; i < len(turns); i++ {
		prev, _ := strconv.ParseFloat(turns[i-1].Timestamp, 64)
		cur, _ := strconv.ParseFloat(turns[i].Timestamp, 64)
		if prev >= cur {
			t.Errorf("turns out of order at %d: %s then %s", i, turns[i-1].Timestamp, turns[i].Timestamp)
		}
	}
}

func TestResolveRolesAndMentionStripping(t *testing.T) {
	messages := []domain.RawMessage{
		userMessage("100.000000", "<@UBOT> summarize this"),
		{Timestamp: "101.000000", IsBot: true, SubType: "bot_message", Text: "a summary"},
	}
	r := NewResolver(&fakeThreadAPI{messages: messages}, 50)

	turns, _, err := r.Resolve(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Role != domain.RoleUser || turns[0].Text != "summarize this" {
		t.Errorf("turn 0 = %+v", turns[0])
	}
	if turns[1].Role != domain.RoleAssistant {
		t.Errorf("turn 1 role = %q, want assistant", turns[1].Role)
	}
}

func TestResolveSkipsSystemMessagesAndCurrent(t *testing.T) {
	messages := []domain.RawMessage{
		userMessage("100.000000", "hello"),
		{Timestamp: "101.000000", SubType: "channel_join", Text: "U2 has joined"},
		userMessage("105.000000", "the triggering message"),
	}
	r := NewResolver(&fakeThreadAPI{messages: messages}, 50)

	turns, _, err := r.Resolve(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1: %+v", len(turns), turns)
	}
	if turns[0].Text != "hello" {
		t.Errorf("turn text = %q", turns[0].Text)
	}
}

func TestResolveDeduplicatesAcrossPages(t *testing.T) {
	// a page boundary that re-serves the last message of the previous page
	api := &overlappingAPI{}
	r := NewResolver(api, 2)

	turns, _, err := r.Resolve(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3: %+v", len(turns), turns)
	}
}

type overlappingAPI struct{}

func (o *overlappingAPI) ThreadReplies(_ context.Context, _, _, cursor string, _ int) ([]domain.RawMessage, string, error) {
	if cursor == "" {
		return []domain.RawMessage{
			userMessage("100.000000", "one"),
			userMessage("101.000000", "two"),
		}, "next", nil
	}
	return []domain.RawMessage{
		userMessage("101.000000", "two"),
		userMessage("102.000000", "three"),
	}, "", nil
}

func TestResolveFetchFailure(t *testing.T) {
	r := NewResolver(&fakeThreadAPI{err: fmt.Errorf("slack is down")}, 50)

	_, _, err := r.Resolve(context.Background(), testEvent())
	if !errors.Is(err, domain.ErrHistoryFetch) {
		t.Errorf("err = %v, want ErrHistoryFetch", err)
	}
}

func TestResolveReturnsTriggerWithAttachments(t *testing.T) {
	ref := domain.AttachmentRef{
		SourceURL: "https://files.example/report.pdf",
		MimeType:  "application/pdf",
		Name:      "report.pdf",
	}
	messages := []domain.RawMessage{
		userMessage("100.000000", "hello"),
		{
			Timestamp:   "105.000000",
			SenderID:    "U1",
			SubType:     "file_share",
			Text:        "<@UBOT> summarize this",
			Attachments: []domain.AttachmentRef{ref},
		},
	}
	r := NewResolver(&fakeThreadAPI{messages: messages}, 50)

	turns, trigger, err := r.Resolve(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(turns) != 1 || turns[0].Text != "hello" {
		t.Fatalf("history should exclude the triggering message: %+v", turns)
	}
	if trigger.Text != "summarize this" {
		t.Errorf("trigger text = %q", trigger.Text)
	}
	if len(trigger.Attachments) != 1 || trigger.Attachments[0] != ref {
		t.Errorf("trigger attachments = %+v, want the shared file", trigger.Attachments)
	}
}
