// Package demo holds the sample events and observers used by rxbus-cli.
package demo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nfrund/rxbus/internal/bus"
	"github.com/nfrund/rxbus/internal/pubsub"
	"github.com/nfrund/rxbus/internal/topic"
)

// Announcement is the supertype the demo can cast events to.
type Announcement interface {
	Headline() string
}

// UserJoined is the sample event.
type UserJoined struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// Headline implements Announcement.
func (u UserJoined) Headline() string {
	return fmt.Sprintf("%s joined %s", u.Name, u.Room)
}

// Options describes one demo send.
type Options struct {
	Room          string
	Name          string
	Cast          bool
	SendToDefault bool
	IntKey        *int64
	StringKey     *string
	// Settle is how long Run waits for asynchronous deliveries.
	Settle time.Duration
}

// key returns the routing key, if one was requested.
func (o Options) key() (topic.Key, bool, error) {
	switch {
	case o.IntKey != nil:
		k, err := topic.IntKeyOf(o.IntKey)
		return k, true, err
	case o.StringKey != nil:
		k, err := topic.StringKeyOf(o.StringKey)
		return k, true, err
	}
	return topic.Key{}, false, nil
}

// SendOptions translates the demo options into bus send options.
func (o Options) SendOptions() (bus.SendOptions, error) {
	opts := bus.NewOptions()
	if o.Cast {
		opts = opts.WithCast(topic.TypeFor[Announcement]())
	}
	if k, ok, err := o.key(); err != nil {
		return opts, err
	} else if ok {
		if opts, err = opts.WithKey(k); err != nil {
			return opts, err
		}
	}
	if o.SendToDefault {
		opts = opts.WithSendToDefault()
	}
	return opts, nil
}

// Recorder collects what each named observer received.
type Recorder struct {
	mu       sync.Mutex
	received map[string][]string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{received: make(map[string][]string)}
}

func (r *Recorder) add(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received[name] = append(r.received[name], value)
}

// Snapshot returns a copy of the recorded deliveries.
func (r *Recorder) Snapshot() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]string, len(r.received))
	for k, v := range r.received {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Observers is the set of attached demo observers.
type Observers struct {
	names []string
	list  []*pubsub.Observer
}

// Names returns the observer names in attach order.
func (o *Observers) Names() []string {
	return o.names
}

// Close detaches every observer.
func (o *Observers) Close() {
	for _, obs := range o.list {
		obs.Close()
	}
}

func attach[T any](b *bus.Bus, set *Observers, name string, rec *Recorder, opts ...bus.SubscribeOption) error {
	obs, err := bus.Subscribe(b, func(_ context.Context, ev T) error {
		if rec != nil {
			rec.add(name, fmt.Sprintf("%+v", ev))
		}
		return nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("attach %s: %w", name, err)
	}
	set.names = append(set.names, name)
	set.list = append(set.list, obs)
	return nil
}

// Attach subscribes the demo observers. Keyed observers are added only when
// opts carries a key. rec may be nil.
func Attach(b *bus.Bus, opts Options, rec *Recorder) (*Observers, error) {
	set := &Observers{}

	if err := attach[UserJoined](b, set, "joined", rec); err != nil {
		return nil, err
	}
	if err := attach[Announcement](b, set, "announcements", rec); err != nil {
		set.Close()
		return nil, err
	}

	k, ok, err := opts.key()
	if err != nil {
		set.Close()
		return nil, err
	}
	if ok {
		if err := attach[UserJoined](b, set, "joined#"+k.String(), rec, bus.OnKey(k)); err != nil {
			set.Close()
			return nil, err
		}
		if err := attach[Announcement](b, set, "announcements#"+k.String(), rec, bus.OnKey(k)); err != nil {
			set.Close()
			return nil, err
		}
	}
	return set, nil
}

// Result is the outcome of one demo send.
type Result struct {
	Event     string
	Delivered bool
	Received  map[string][]string
}

// Run attaches the demo observers, sends one UserJoined event and reports
// which observers received it.
func Run(ctx context.Context, b *bus.Bus, opts Options) (Result, error) {
	sendOpts, err := opts.SendOptions()
	if err != nil {
		return Result{}, err
	}

	rec := NewRecorder()
	observers, err := Attach(b, opts, rec)
	if err != nil {
		return Result{}, err
	}
	defer observers.Close()

	event := UserJoined{Room: opts.Room, Name: opts.Name}
	delivered, err := b.Send(ctx, event, sendOpts)
	if err != nil {
		return Result{}, err
	}

	settle := opts.Settle
	if settle <= 0 {
		settle = 200 * time.Millisecond
	}
	select {
	case <-time.After(settle):
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	return Result{
		Event:     fmt.Sprintf("%+v", event),
		Delivered: delivered,
		Received:  rec.Snapshot(),
	}, nil
}

// SortedNames returns the keys of received in sorted order.
func SortedNames(received map[string][]string) []string {
	names := make([]string, 0, len(received))
	for name := range received {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
