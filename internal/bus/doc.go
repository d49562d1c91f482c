// Package bus implements the dispatch engine: it takes an event plus send
// options, works out which one or two topics should receive it, and pushes
// the event into each of those topics that already has a processor.
//
// Sending never creates topics. Only subscribing does, so an event sent
// before anyone subscribed is dropped and Send reports false:
//
//	b := bus.New(topicmgr.NewRegistry(nil))
//
//	obs, err := bus.Subscribe(b, func(ctx context.Context, ev Notifier) error {
//		fmt.Println(ev.Notify())
//		return nil
//	}, bus.OnStringKey("lobby"))
//
//	opts := bus.NewOptions().
//		WithCast(topic.TypeFor[Notifier]()).
//		WithStringKey("lobby").
//		WithSendToDefault()
//	delivered, err := b.Send(ctx, UserJoined{Name: "ann"}, opts)
//
// Routing rules:
//   - no key: the bare topic of the event type (or the cast type)
//   - key: the keyed topic only
//   - key plus WithSendToDefault: both the keyed and the bare topic
package bus
