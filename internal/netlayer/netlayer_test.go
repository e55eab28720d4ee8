package netlayer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/google/go-cmp/cmp"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/model"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/workers"
	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/pkg/config"
)

func expectEvent(t *testing.T, events <-chan model.Event) {
	t.Helper()
	select {
	case ev := <-events:
		if _, ok := ev.(model.NewPacketReady); !ok {
			t.Fatalf("unexpected event %T", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for NewPacketReady")
	}
}

func expectNoEvent(t *testing.T, events <-chan model.Event) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %T", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSource(t *testing.T) {
	cfg := config.NewConfig(config.WithLogger(log.Log), config.WithMaxPacketSize(8))
	events := make(chan model.Event, 8)
	manager := workers.NewManager(log.Log)
	src := NewSource(cfg, events)
	src.StartWorkers(manager)
	defer func() {
		manager.StartShutdown()
		manager.WaitWorkersShutdown()
	}()
	ctx := context.Background()

	t.Run("invalid packets are rejected", func(t *testing.T) {
		if err := src.Send(ctx, model.Packet("123456789")); !errors.Is(err, ErrPacketTooLarge) {
			t.Errorf("unexpected error %v", err)
		}
		if err := src.Send(ctx, nil); !errors.Is(err, ErrEmptyPacket) {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("no notification while intake is disabled", func(t *testing.T) {
		if err := src.Send(ctx, model.Packet("a")); err != nil {
			t.Fatal(err)
		}
		expectNoEvent(t, events)
	})

	t.Run("a single notification is outstanding", func(t *testing.T) {
		src.Send(ctx, model.Packet("b"))
		src.SetIntake(true)
		expectEvent(t, events)
		src.SetIntake(true)
		expectNoEvent(t, events)
	})

	t.Run("taking a packet allows the next notification", func(t *testing.T) {
		p := src.TryTakePacket()
		if p.IsNone() || string(p.Unwrap()) != "a" {
			t.Fatalf("unexpected packet %v", p)
		}
		expectEvent(t, events)
		p = src.TryTakePacket()
		if p.IsNone() || string(p.Unwrap()) != "b" {
			t.Fatalf("unexpected packet %v", p)
		}
		expectNoEvent(t, events)
		if !src.TryTakePacket().IsNone() {
			t.Fatal("expected an empty queue")
		}
	})

	t.Run("reopening the gate renews the notification", func(t *testing.T) {
		src.Send(ctx, model.Packet("c"))
		expectEvent(t, events)
		// the link ignores the event because the gate closed meanwhile
		src.SetIntake(false)
		src.SetIntake(true)
		expectEvent(t, events)
	})

	t.Run("send honors the context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		for i := 0; i < DefaultSourceCapacity+1; i++ {
			if err := src.Send(ctx, model.Packet("x")); err != nil {
				if !errors.Is(err, context.Canceled) {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
		}
		t.Fatal("expected Send to fail on a full queue")
	})
}

func TestSink(t *testing.T) {
	manager := workers.NewManager(log.Log)
	snk := NewSink(config.NewConfig(config.WithLogger(log.Log)))
	for _, p := range []string{"a", "b", "c"} {
		snk.Deliver(model.Packet(p))
	}
	snk.StartWorkers(manager)

	got := []string{}
	for len(got) < 3 {
		select {
		case p := <-snk.Packets():
			got = append(got, string(p))
		case <-time.After(5 * time.Second):
			t.Fatal("timeout")
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Error(diff)
	}

	manager.StartShutdown()
	manager.WaitWorkersShutdown()
	if _, ok := <-snk.Packets(); ok {
		t.Error("expected a closed channel")
	}
}
