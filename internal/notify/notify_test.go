package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestService_PublishesWithDefaultDuration(t *testing.T) {
	s := NewService(3 * time.Second)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Broker().Subscribe(ctx)

	Success(s, "Saved", "Official registered")

	select {
	case evt := <-ch:
		require.Equal(t, TypeSuccess, evt.Payload.Type)
		require.Equal(t, "Saved", evt.Payload.Title)
		require.Equal(t, "Official registered", evt.Payload.Message)
		require.Equal(t, 3*time.Second, evt.Payload.Duration)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestService_KeepsExplicitDuration(t *testing.T) {
	s := NewService(3 * time.Second)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Broker().Subscribe(ctx)

	s.Notify(Notification{Type: TypeInfo, Title: "x", Duration: time.Second})

	evt := <-ch
	require.Equal(t, time.Second, evt.Payload.Duration)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.Equal(t, Notification{}, r.Last())

	Error(&r, "Error", "boom")
	Info(&r, "Draft", "saved")
	require.Len(t, r.Notifications, 2)
	require.Equal(t, TypeInfo, r.Last().Type)
	require.Equal(t, TypeError, r.Notifications[0].Type)
}
