// Package topicmgr owns the process-wide mapping from topic identities to
// the processors that carry their events.
//
// The registry has two lookup modes. The subscription path uses
// LookupOrCreate, which creates a processor exactly once per identity. The
// dispatch path uses LookupExisting, which never creates anything: an event
// sent to a topic nobody has subscribed to is simply not delivered.
//
//	reg := topicmgr.NewRegistry(pubsub.MemoryFactory)
//	p, err := reg.LookupOrCreate(topic.Bare(topic.TypeFor[UserOnline]()))
//	if err != nil {
//		return err
//	}
//	obs, err := p.Subscribe(handler)
//
// Entries live until Reset is called.
package topicmgr
