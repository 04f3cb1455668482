// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/eventine-io/eventine/internal/recommend"
)

// fakeSource feeds a fixed set of messages then closes the channel.
type fakeSource struct {
	messages []*message.Message
}

func (f *fakeSource) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	out := make(chan *message.Message)
	go func() {
		defer close(out)
		for _, msg := range f.messages {
			select {
			case <-ctx.Done():
				return
			case out <- msg:
			}
		}
	}()
	return out, nil
}

// fakeSink records published updates and can be set to fail.
type fakeSink struct {
	mu      sync.Mutex
	updates []*SimilarityUpdateEvent
	fail    bool
}

func (f *fakeSink) PublishUpdate(ctx context.Context, event *SimilarityUpdateEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("sink unavailable")
	}
	f.updates = append(f.updates, event)
	return nil
}

func (f *fakeSink) all() []*SimilarityUpdateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*SimilarityUpdateEvent, len(f.updates))
	copy(out, f.updates)
	return out
}

func newConsumerTestModel(t *testing.T) *recommend.SimilarityUpdater {
	t.Helper()
	weights, err := recommend.NewActionWeightTable(recommend.DefaultActionWeights())
	if err != nil {
		t.Fatalf("NewActionWeightTable() error = %v", err)
	}
	return recommend.NewSimilarityUpdater(
		weights,
		recommend.NewUserEventWeightStore(),
		recommend.NewEventWeightSumStore(),
		recommend.NewPairMinWeightStore(),
		recommend.NewEventSimilarityStore(),
		zerolog.Nop(),
	)
}

func actionMessage(t *testing.T, userID, eventID int64, kind string) *message.Message {
	t.Helper()
	event := &ActionEvent{
		SchemaVersion: SchemaVersion,
		ActionID:      "test-" + kind,
		UserID:        userID,
		EventID:       eventID,
		Kind:          kind,
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := NewSerializer().MarshalAction(event)
	if err != nil {
		t.Fatalf("MarshalAction() error = %v", err)
	}
	return message.NewMessage(event.ActionID, data)
}

func runConsumer(t *testing.T, c *Consumer) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain within timeout")
	}
}

func TestConsumer_AppliesAndPublishes(t *testing.T) {
	msgs := []*message.Message{
		actionMessage(t, 1, 10, "view"),
		actionMessage(t, 1, 20, "like"),
	}
	sink := &fakeSink{}
	consumer, err := NewConsumer(&fakeSource{messages: msgs}, newConsumerTestModel(t), sink,
		DefaultConsumerConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}

	runConsumer(t, consumer)

	for i, msg := range msgs {
		select {
		case <-msg.Acked():
		default:
			t.Errorf("message %d was not acked", i)
		}
	}

	updates := sink.all()
	if len(updates) != 1 {
		t.Fatalf("sink received %d updates, want 1", len(updates))
	}
	if updates[0].EventA != 10 || updates[0].EventB != 20 {
		t.Errorf("update pair = (%d, %d), want (10, 20)", updates[0].EventA, updates[0].EventB)
	}
	if err := updates[0].Validate(); err != nil {
		t.Errorf("published update invalid: %v", err)
	}
}

func TestConsumer_SkipsPoisonMessages(t *testing.T) {
	garbage := message.NewMessage("garbage", []byte("{not json"))
	unknownKind := actionMessage(t, 1, 10, "share")
	invalid := func() *message.Message {
		// Bypass marshal-side validation to simulate a bad producer.
		return message.NewMessage("bad", []byte(`{"action_id":"x","user_id":-1,"event_id":5,"kind":"view","timestamp":"2026-03-01T12:00:00Z"}`))
	}()

	msgs := []*message.Message{garbage, unknownKind, invalid}
	sink := &fakeSink{}
	consumer, err := NewConsumer(&fakeSource{messages: msgs}, newConsumerTestModel(t), sink,
		DefaultConsumerConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}

	runConsumer(t, consumer)

	// Poison messages are acked: redelivering them can never succeed.
	for i, msg := range msgs {
		select {
		case <-msg.Acked():
		default:
			t.Errorf("poison message %d was not acked", i)
		}
	}
	if got := sink.all(); len(got) != 0 {
		t.Errorf("sink received %d updates from poison messages, want 0", len(got))
	}
}

func TestConsumer_NacksOnPublishFailure(t *testing.T) {
	msgs := []*message.Message{
		actionMessage(t, 1, 10, "view"),
		actionMessage(t, 1, 20, "like"), // produces an update, sink fails
	}
	sink := &fakeSink{fail: true}
	consumer, err := NewConsumer(&fakeSource{messages: msgs}, newConsumerTestModel(t), sink,
		DefaultConsumerConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}

	runConsumer(t, consumer)

	select {
	case <-msgs[1].Nacked():
	default:
		t.Error("message with failed publish was not nacked")
	}
}

func TestConsumer_PerUserOrdering(t *testing.T) {
	// Interleaved actions for many users; each user's weight must end at
	// the maximum of its kinds, which only holds when the per-user order
	// is preserved (a reordered weaker action would be a no-op anyway,
	// so also assert the processed sequence via the sink's update count).
	var msgs []*message.Message
	for u := int64(1); u <= 20; u++ {
		msgs = append(msgs,
			actionMessage(t, u, 100, "view"),
			actionMessage(t, u, 200, "register"),
			actionMessage(t, u, 100, "like"),
		)
	}
	updater := newConsumerTestModel(t)
	sink := &fakeSink{}
	cfg := DefaultConsumerConfig()
	cfg.Partitions = 4
	consumer, err := NewConsumer(&fakeSource{messages: msgs}, updater, sink, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}

	runConsumer(t, consumer)

	for i, msg := range msgs {
		select {
		case <-msg.Acked():
		default:
			t.Errorf("message %d was not acked", i)
		}
	}
	// Each user: register creates the (100, 200) pair, the like upgrade
	// refreshes it. 2 updates per user.
	if got, want := len(sink.all()), 40; got != want {
		t.Errorf("sink received %d updates, want %d", got, want)
	}
}

func TestConsumer_RejectsBadConfig(t *testing.T) {
	cfg := ConsumerConfig{Partitions: 0, BufferSize: 10}
	if _, err := NewConsumer(&fakeSource{}, newConsumerTestModel(t), nil, cfg, zerolog.Nop()); err == nil {
		t.Error("NewConsumer() with zero partitions succeeded, want error")
	}
}
