package mqtt

import (
	"github.com/sweeney/keypad-lock/internal/lock"
)

// Message is one publish as it would reach the broker.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakePublisher records what would be sent to the broker, using the same
// topics, QoS and retain flags as RealPublisher.
type FakePublisher struct {
	Events         []lock.Event
	Payloads       [][]byte
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Messages holds every publish in order across both topics.
	Messages []Message

	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records an access event. Failed publishes are not recorded.
func (f *FakePublisher) Publish(event lock.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}

	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	f.Messages = append(f.Messages, Message{Topic: Topic, Payload: payload})
	return nil
}

// PublishSystem records a lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}

	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	f.Messages = append(f.Messages, Message{Topic: TopicSystem, QoS: 1, Retained: event.Retained, Payload: payload})
	return nil
}

// Outcomes lists the types of the published access events.
func (f *FakePublisher) Outcomes() []lock.EventType {
	out := make([]lock.EventType, len(f.Events))
	for i, ev := range f.Events {
		out[i] = ev.Type
	}
	return out
}

// Retained returns the last retained message on topic, which is what a
// subscriber joining now would receive.
func (f *FakePublisher) Retained(topic string) (Message, bool) {
	for i := len(f.Messages) - 1; i >= 0; i-- {
		if m := f.Messages[i]; m.Topic == topic && m.Retained {
			return m, true
		}
	}
	return Message{}, false
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recordings, injected errors and flags.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
