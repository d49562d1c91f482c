package topicmgr_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/rxbus/internal/pubsub"
	"github.com/nfrund/rxbus/internal/topic"
	"github.com/nfrund/rxbus/internal/topicmgr"
)

type damageEvent struct{ Amount int }

type healEvent struct{ Amount int }

func TestRegistry(t *testing.T) {
	damage := topic.TypeFor[damageEvent]()

	t.Run("LookupExisting never creates", func(t *testing.T) {
		registry := topicmgr.NewRegistry(nil)

		p, found := registry.LookupExisting(topic.Bare(damage))
		assert.False(t, found)
		assert.Nil(t, p)
		assert.Equal(t, 0, registry.Count())
	})

	t.Run("LookupOrCreate creates once and LookupExisting finds it", func(t *testing.T) {
		registry := topicmgr.NewRegistry(nil)
		id := topic.Bare(damage)

		p1, err := registry.LookupOrCreate(id)
		require.NoError(t, err)
		p2, err := registry.LookupOrCreate(topic.Bare(topic.TypeFor[damageEvent]()))
		require.NoError(t, err)
		assert.Same(t, p1, p2)

		found, ok := registry.LookupExisting(id)
		assert.True(t, ok)
		assert.Same(t, p1, found)
		assert.Equal(t, 1, registry.Count())
	})

	t.Run("int and string keys are separate topics", func(t *testing.T) {
		registry := topicmgr.NewRegistry(nil)

		_, err := registry.LookupOrCreate(topic.Keyed(damage, topic.StringKey("1")))
		require.NoError(t, err)

		_, found := registry.LookupExisting(topic.Keyed(damage, topic.IntKey(1)))
		assert.False(t, found)
		_, found = registry.LookupExisting(topic.Bare(damage))
		assert.False(t, found)
	})

	t.Run("invalid identity is rejected", func(t *testing.T) {
		registry := topicmgr.NewRegistry(nil)

		_, err := registry.LookupOrCreate(topic.Bare(nil))
		var topicErr *topicmgr.TopicError
		require.ErrorAs(t, err, &topicErr)
		assert.Equal(t, topicmgr.ErrorInvalidIdentity, topicErr.Type)
		assert.Equal(t, 0, registry.Count())
	})

	t.Run("factory failure is reported and nothing is stored", func(t *testing.T) {
		cause := errors.New("backend down")
		registry := topicmgr.NewRegistry(func(topic.Identity) (pubsub.Processor, error) {
			return nil, cause
		})

		_, err := registry.LookupOrCreate(topic.Bare(damage))
		assert.ErrorIs(t, err, cause)
		var topicErr *topicmgr.TopicError
		require.ErrorAs(t, err, &topicErr)
		assert.Equal(t, topicmgr.ErrorCreateFailed, topicErr.Type)
		assert.Equal(t, 0, registry.Count())
	})

	t.Run("List and GetEntry", func(t *testing.T) {
		registry := topicmgr.NewRegistry(nil)
		heal := topic.Bare(topic.TypeFor[healEvent]())
		keyed := topic.Keyed(damage, topic.IntKey(3))

		_, err := registry.LookupOrCreate(heal)
		require.NoError(t, err)
		_, err = registry.LookupOrCreate(keyed)
		require.NoError(t, err)

		assert.Equal(t, []topic.Identity{keyed, heal}, registry.List())

		entry, ok := registry.GetEntry(keyed)
		require.True(t, ok)
		assert.Equal(t, keyed.String(), entry.Topic)
		assert.False(t, entry.CreatedAt.IsZero())

		_, ok = registry.GetEntry(topic.Bare(damage))
		assert.False(t, ok)
	})
}

func TestRegistryConcurrentCreate(t *testing.T) {
	var created int
	var mu sync.Mutex
	registry := topicmgr.NewRegistry(func(id topic.Identity) (pubsub.Processor, error) {
		mu.Lock()
		created++
		mu.Unlock()
		return pubsub.NewMemoryProcessor(id), nil
	})
	id := topic.Keyed(topic.TypeFor[damageEvent](), topic.StringKey("arena"))

	const workers = 64
	results := make([]pubsub.Processor, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			p, err := registry.LookupOrCreate(id)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, registry.Count())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}

func TestRegistryReset(t *testing.T) {
	registry := topicmgr.NewRegistry(nil)
	id := topic.Bare(topic.TypeFor[damageEvent]())

	p, err := registry.LookupOrCreate(id)
	require.NoError(t, err)

	require.NoError(t, registry.Reset())
	assert.Equal(t, 0, registry.Count())

	_, found := registry.LookupExisting(id)
	assert.False(t, found)
	assert.ErrorIs(t, p.Push(t.Context(), damageEvent{}), pubsub.ErrProcessorClosed)

	fresh, err := registry.LookupOrCreate(id)
	require.NoError(t, err)
	assert.NotSame(t, p, fresh)
}

func TestRegistryStats(t *testing.T) {
	registry := topicmgr.NewRegistry(nil)
	damage := topic.TypeFor[damageEvent]()

	p, err := registry.LookupOrCreate(topic.Bare(damage))
	require.NoError(t, err)
	_, err = registry.LookupOrCreate(topic.Keyed(damage, topic.IntKey(1)))
	require.NoError(t, err)
	_, err = registry.LookupOrCreate(topic.Bare(topic.TypeFor[healEvent]()))
	require.NoError(t, err)

	obs, err := p.Subscribe(func(_ context.Context, _ any) error { return nil })
	require.NoError(t, err)
	defer obs.Close()

	stats := registry.GetStats()
	assert.Equal(t, 3, stats.TotalTopics)
	assert.Equal(t, 2, stats.BareTopics)
	assert.Equal(t, 1, stats.KeyedTopics)
	assert.Equal(t, 1, stats.Observers)
	assert.Equal(t, 2, stats.ByType[damage.String()])
}
