// Package topic defines the identities that partition events into
// independent delivery streams.
//
// A topic is either bare, identified only by the event type descriptor, or
// keyed, identified by the type plus a routing key. Keys are a tagged union
// of an integer and a string so that integer 5 and string "5" never collide:
//
//	topic.Bare(topic.TypeFor[UserOnline]())
//	topic.Keyed(topic.TypeFor[UserOnline](), topic.IntKey(42))
//	topic.Keyed(topic.TypeFor[UserOnline](), topic.StringKey("lobby"))
//
// Identities are plain comparable values and can be used directly as map
// keys.
package topic
