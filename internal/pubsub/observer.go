package pubsub

import (
	"sync"

	"github.com/google/uuid"
)

// Observer is one attachment to a processor. Close detaches it.
type Observer struct {
	id     string
	topic  string
	once   sync.Once
	detach func()
}

func newObserver(topicName string) *Observer {
	return &Observer{
		id:    uuid.New().String(),
		topic: topicName,
	}
}

// ID returns the unique observer identifier.
func (o *Observer) ID() string {
	return o.id
}

// Topic returns the name of the topic the observer is attached to.
func (o *Observer) Topic() string {
	return o.topic
}

// Close detaches the observer. It is safe to call multiple times or on a
// nil Observer.
func (o *Observer) Close() {
	if o == nil {
		return
	}
	o.once.Do(func() {
		if o.detach != nil {
			o.detach()
		}
	})
}
