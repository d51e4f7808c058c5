package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dlukyanov/gemini-slack-bot/pkg/domain"
	"github.com/dlukyanov/gemini-slack-bot/pkg/history"
	"github.com/dlukyanov/gemini-slack-bot/pkg/logger"
)

type WorkspaceGate interface {
	IsAllowed(workspaceID string) bool
}

type EventRegistry interface {
	MarkIfNew(eventID string) bool
}

type HistoryResolver interface {
	Resolve(ctx context.Context, event domain.MessageEvent) (history []domain.ConversationTurn, trigger domain.ConversationTurn, err error)
}

type RequestBuilder interface {
	Build(ctx context.Context, history []domain.ConversationTurn, current domain.ConversationTurn) (domain.ModelRequest, error)
}

type ModelClient interface {
	Generate(ctx context.Context, request domain.ModelRequest) (domain.ModelResponse, error)
}

type Formatter interface {
	Format(response domain.ModelResponse) (domain.Reply, error)
}

type ReplyPoster interface {
	PostReply(ctx context.Context, channelID, threadTS string, chunks []string) error
}

type dispatcher struct {
	gate      WorkspaceGate
	registry  EventRegistry
	resolver  HistoryResolver
	builder   RequestBuilder
	model     ModelClient
	formatter Formatter
	poster    ReplyPoster

	mu          sync.Mutex
	threadLocks map[string]*threadLock
}

// threadLock is a refcounted per-thread mutex; the map entry is evicted
// once the last holder releases it, so idle threads do not accumulate.
type threadLock struct {
	mu   sync.Mutex
	refs int
}

func NewDispatcher(
	gate WorkspaceGate,
	registry EventRegistry,
	resolver HistoryResolver,
	builder RequestBuilder,
	model ModelClient,
	formatter Formatter,
	poster ReplyPoster,
) *dispatcher {
	return &dispatcher{
		gate:        gate,
		registry:    registry,
		resolver:    resolver,
		builder:     builder,
		model:       model,
		formatter:   formatter,
		poster:      poster,
		threadLocks: make(map[string]*threadLock),
	}
}

// Dispatch runs one event through the whole pipeline and posts the reply
// into the originating thread. Filtered events exit silently; failed ones
// get a short category-level reply and nothing else.
func (d *dispatcher) Dispatch(ctx context.Context, event domain.MessageEvent) {
	ctx = logger.ContextWithEventID(ctx, event.EventID)

	if reason, ok := d.filter(event); !ok {
		slog.InfoContext(ctx, "event filtered out", "reason", reason)
		return
	}

	if err := d.process(ctx, event); err != nil {
		slog.ErrorContext(ctx, "pipeline failed", "category", domain.FailureCategory(err), logger.Err(err))
		if !errors.Is(err, domain.ErrReplyPost) {
			d.postFailure(ctx, event, err)
		}
	}
}

func (d *dispatcher) filter(event domain.MessageEvent) (string, bool) {
	switch {
	case event.IsBot:
		return "bot echo", false
	case !d.gate.IsAllowed(event.WorkspaceID):
		return "workspace not allowed", false
	case !d.registry.MarkIfNew(event.EventID):
		return "duplicate delivery", false
	}
	return "", true
}

func (d *dispatcher) process(ctx context.Context, event domain.MessageEvent) error {
	slog.DebugContext(ctx, "building context", "channel", event.ChannelID, "thread", event.ThreadTS)

	historyTurns, trigger, err := d.resolver.Resolve(ctx, event)
	if err != nil {
		// degrade to a single-turn request rather than aborting
		slog.WarnContext(ctx, "continuing without thread history", logger.Err(err))
		historyTurns = nil
	}

	// mention payloads carry no files; the thread fetch does
	attachments := event.Attachments
	if len(attachments) == 0 {
		attachments = trigger.Attachments
	}

	current := domain.ConversationTurn{
		Role:        domain.RoleUser,
		Text:        history.CleanText(event.Text),
		Attachments: attachments,
		Timestamp:   event.MessageTS,
	}

	request, err := d.builder.Build(ctx, historyTurns, current)
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "requesting model", "turns", len(request.Turns))
	response, err := d.model.Generate(ctx, request)
	if err != nil {
		return err
	}

	reply, err := d.formatter.Format(response)
	if err != nil {
		return err
	}

	return d.post(ctx, event, reply.Chunks)
}

func (d *dispatcher) post(ctx context.Context, event domain.MessageEvent, chunks []string) error {
	key := event.ChannelID + ":" + event.ThreadTS
	lock := d.acquireThreadLock(key)
	defer d.releaseThreadLock(key, lock)

	if err := d.poster.PostReply(ctx, event.ChannelID, event.ThreadTS, chunks); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReplyPost, err)
	}
	slog.InfoContext(ctx, "replied", "chunks", len(chunks))
	return nil
}

func (d *dispatcher) postFailure(ctx context.Context, event domain.MessageEvent, pipelineErr error) {
	if err := d.post(ctx, event, []string{domain.UserFacingError(pipelineErr)}); err != nil {
		slog.ErrorContext(ctx, "posting failure reply", logger.Err(err))
	}
}

// acquireThreadLock serializes reply posting per thread so replies land
// in the order their events finished processing.
func (d *dispatcher) acquireThreadLock(key string) *threadLock {
	d.mu.Lock()
	lock, ok := d.threadLocks[key]
	if !ok {
		lock = &threadLock{}
		d.threadLocks[key] = lock
	}
	lock.refs++
	d.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (d *dispatcher) releaseThreadLock(key string, lock *threadLock) {
	lock.mu.Unlock()

	d.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(d.threadLocks, key)
	}
	d.mu.Unlock()
}
