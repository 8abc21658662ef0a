package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/middleware"
	"github.com/noah-isme/gema-roster-web/internal/store"
)

func TestEventServiceBroadcastsLocally(t *testing.T) {
	svc := NewEventService(EventConfig{}, nil, testLogger())

	events, cleanup := svc.Subscribe()
	defer cleanup()

	published := svc.Publish(context.Background(), "student.updated", dto.PanelStudents, dto.PanelMatrix)
	require.NotEmpty(t, published.ID)

	select {
	case event := <-events:
		require.Equal(t, published.ID, event.ID)
		require.True(t, event.Touches(dto.PanelMatrix))
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cleanup()
	_, open := <-events
	require.False(t, open)
}

func TestEventServiceStampsOriginTab(t *testing.T) {
	svc := NewEventService(EventConfig{}, nil, testLogger())

	ctx := middleware.ContextWithClient(context.Background(), "tab-a")
	event := svc.Publish(ctx, "assignment.created", dto.PanelAssignments)
	require.Equal(t, "tab-a", event.Origin)
	require.True(t, event.FromClient("tab-a"))

	anonymous := svc.Publish(context.Background(), "assignment.created", dto.PanelAssignments)
	require.Empty(t, anonymous.Origin)
	require.False(t, anonymous.FromClient(""))
}

func TestEventServiceDropsForSlowSubscribers(t *testing.T) {
	svc := NewEventService(EventConfig{}, nil, testLogger())
	_, cleanup := svc.Subscribe()
	defer cleanup()

	done := make(chan struct{})
	go func() {
		for i := 0; i < eventBufferSize*3; i++ {
			svc.Publish(context.Background(), "submission.toggled", dto.PanelMatrix)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
}

func TestEventServiceRelaysBetweenReplicasOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newClient := func() *redis.Client {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return client
	}

	refresher := &recordingRefresher{}
	origin := NewEventService(EventConfig{Redis: newClient(), Channel: "roster:views"}, nil, testLogger())
	replica := NewEventService(EventConfig{Redis: newClient(), Channel: "roster:views"}, refresher, testLogger())
	origin.Start(ctx)
	replica.Start(ctx)

	originEvents, cleanupOrigin := origin.Subscribe()
	defer cleanupOrigin()
	replicaEvents, cleanupReplica := replica.Subscribe()
	defer cleanupReplica()

	published := origin.Publish(ctx, "assignment.deleted", dto.PanelAssignments, dto.PanelMatrix)

	select {
	case event := <-replicaEvents:
		require.Equal(t, published.ID, event.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("replica did not receive the event")
	}
	require.Equal(t, [][]store.Kind{{store.KindAssignments, store.KindSubmissions}}, refresher.Calls())

	// The origin sees its own event once, from the local broadcast.
	require.Equal(t, published.ID, (<-originEvents).ID)
	select {
	case duplicate := <-originEvents:
		t.Fatalf("unexpected echo of %s", duplicate.ID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestKindsForMapsPanels(t *testing.T) {
	require.Equal(t, []store.Kind{store.KindStudents, store.KindSubmissions},
		kindsFor(dto.ViewEvent{Panels: []string{dto.PanelStudents, dto.PanelMatrix, dto.PanelActivity}}))
	require.Empty(t, kindsFor(dto.ViewEvent{Panels: []string{dto.PanelActivity}}))
}

type recordingRefresher struct {
	mu    sync.Mutex
	calls [][]store.Kind
}

func (r *recordingRefresher) Refresh(_ context.Context, kinds ...store.Kind) (store.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, kinds)
	return store.Snapshot{}, nil
}

func (r *recordingRefresher) Calls() [][]store.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]store.Kind(nil), r.calls...)
}
