package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/middleware"
	"github.com/noah-isme/gema-roster-web/internal/observability"
	"github.com/noah-isme/gema-roster-web/internal/store"
)

const (
	eventBufferSize     = 16
	remoteRefreshWindow = 10 * time.Second
)

// EventService fans view events out to connected browsers and, when
// configured, to the other console replicas.
type EventService interface {
	ViewPublisher
	Subscribe() (<-chan dto.ViewEvent, func())
	Start(ctx context.Context)
}

// Refresher reloads entity kinds into the store.
type Refresher interface {
	Refresh(ctx context.Context, kinds ...store.Kind) (store.Snapshot, error)
}

// EventConfig wires the optional replica transports.
type EventConfig struct {
	Redis   *redis.Client
	NATS    *nats.Conn
	Channel string
}

type eventService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	refresher    Refresher
	logger       zerolog.Logger
	tracer       trace.Tracer
	broker       *eventBroker
	nodeID       string
}

type eventEnvelope struct {
	Source string        `json:"source"`
	Event  dto.ViewEvent `json:"event"`
	SentAt time.Time     `json:"sent_at"`
}

type eventBroker struct {
	mu          sync.RWMutex
	subscribers map[chan dto.ViewEvent]struct{}
}

// NewEventService constructs the view event broker. refresher may be nil, in
// which case remote events are relayed without touching the store.
func NewEventService(cfg EventConfig, refresher Refresher, logger zerolog.Logger) EventService {
	channel := ""
	subject := ""
	if cfg.Channel != "" {
		channel = cfg.Channel
		subject = strings.ReplaceAll(cfg.Channel, ":", ".")
	}

	return &eventService{
		redis:        cfg.Redis,
		redisChannel: channel,
		nats:         cfg.NATS,
		natsSubject:  subject,
		refresher:    refresher,
		logger:       logger.With().Str("component", "event_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/gema-roster-web/internal/service/events"),
		broker:       &eventBroker{subscribers: make(map[chan dto.ViewEvent]struct{})},
		nodeID:       uuid.NewString(),
	}
}

func (s *eventService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		ready := make(chan struct{})
		go s.consumeRedis(ctx, ready)
		<-ready
	}
	if s.nats != nil && s.natsSubject != "" {
		s.consumeNATS(ctx)
	}
}

func (s *eventService) Publish(ctx context.Context, reason string, panels ...string) dto.ViewEvent {
	event := dto.ViewEvent{
		ID:         uuid.NewString(),
		Reason:     reason,
		Panels:     panels,
		OccurredAt: time.Now().UTC(),
		Origin:     middleware.ClientIDFromContext(ctx),
	}

	spanCtx, span := s.tracer.Start(ctx, "events.publish", trace.WithAttributes(
		attribute.String("event.reason", reason),
		attribute.StringSlice("event.panels", panels),
	))
	defer span.End()

	s.broker.broadcast(event)
	observability.ViewEventsPublished().WithLabelValues(reason, "local").Inc()

	if err := s.publish(spanCtx, event); err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Str("reason", reason).Msg("failed to publish view event to replicas")
	}

	return event
}

func (s *eventService) Subscribe() (<-chan dto.ViewEvent, func()) {
	channel := make(chan dto.ViewEvent, eventBufferSize)

	s.broker.subscribe(channel)
	observability.EventSubscribersActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(channel)
			observability.EventSubscribersActive().Dec()
		})
	}

	return channel, cleanup
}

func (s *eventService) publish(ctx context.Context, event dto.ViewEvent) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(eventEnvelope{Source: s.nodeID, Event: event, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	var errs []error
	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *eventService) consumeRedis(ctx context.Context, ready chan<- struct{}) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	// Start blocks on ready until the subscription is confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		s.logger.Error().Err(err).Msg("view event redis subscription failed")
		close(ready)
		return
	}
	close(ready)

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("view event redis subscription closed")
			return
		}
		s.handleEnvelope(ctx, []byte(msg.Payload))
	}
}

// consumeNATS subscribes without a queue group: every replica must see every event.
func (s *eventService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEnvelope(ctx, msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats view event subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain view event nats subscription")
		}
	}()
}

func (s *eventService) handleEnvelope(ctx context.Context, payload []byte) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid view event payload")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	event := envelope.Event
	if kinds := kindsFor(event); s.refresher != nil && len(kinds) > 0 {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), remoteRefreshWindow)
		if _, err := s.refresher.Refresh(refreshCtx, kinds...); err != nil {
			s.logger.Warn().Err(err).Str("reason", event.Reason).Msg("store refresh after remote view event failed")
		}
		cancel()
	}

	observability.ViewEventsPublished().WithLabelValues(event.Reason, "remote").Inc()
	s.broker.broadcast(event)
}

// kindsFor maps the panels an event touches to the store lists they render from.
func kindsFor(event dto.ViewEvent) []store.Kind {
	seen := map[store.Kind]bool{}
	var kinds []store.Kind
	add := func(kind store.Kind) {
		if !seen[kind] {
			seen[kind] = true
			kinds = append(kinds, kind)
		}
	}

	if event.Touches(dto.PanelStudents) {
		add(store.KindStudents)
	}
	if event.Touches(dto.PanelAssignments) {
		add(store.KindAssignments)
		add(store.KindSubmissions)
	}
	if event.Touches(dto.PanelMatrix) {
		add(store.KindSubmissions)
	}
	return kinds
}

func (b *eventBroker) subscribe(ch chan dto.ViewEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[ch] = struct{}{}
}

func (b *eventBroker) unsubscribe(ch chan dto.ViewEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// broadcast drops the event for subscribers whose buffer is full.
func (b *eventBroker) broadcast(event dto.ViewEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
