package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/rxbus/internal/bus"
	"github.com/nfrund/rxbus/internal/config"
	"github.com/nfrund/rxbus/internal/testutils"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	intKey := int64(7)
	strKey := "lobby"

	tests := []struct {
		name      string
		opts      Options
		delivered bool
		receivers []string
	}{
		{
			name:      "plain send reaches the bare topic",
			opts:      Options{},
			delivered: true,
			receivers: []string{"joined"},
		},
		{
			name:      "cast send reaches the interface topic",
			opts:      Options{Cast: true},
			delivered: true,
			receivers: []string{"announcements"},
		},
		{
			name:      "keyed send reaches the keyed topic only",
			opts:      Options{IntKey: &intKey},
			delivered: true,
			receivers: []string{"joined#i:7"},
		},
		{
			name:      "keyed cast send with default reaches both interface topics",
			opts:      Options{StringKey: &strKey, Cast: true, SendToDefault: true},
			delivered: true,
			receivers: []string{"announcements", "announcements#s:lobby"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bus.New(nil)
			tt.opts.Room = "lobby"
			tt.opts.Name = "ann"
			tt.opts.Settle = 100 * time.Millisecond

			result, err := Run(ctx, b, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.delivered, result.Delivered)
			assert.Equal(t, tt.receivers, SortedNames(result.Received))
		})
	}
}

func TestAttach(t *testing.T) {
	b := bus.New(nil)
	key := "lobby"

	observers, err := Attach(b, Options{StringKey: &key}, nil)
	require.NoError(t, err)
	defer observers.Close()

	assert.Equal(t, []string{"joined", "announcements", "joined#s:lobby", "announcements#s:lobby"}, observers.Names())
	assert.Equal(t, 4, b.Registry().Count())
}

func TestUserJoinedHeadline(t *testing.T) {
	assert.Equal(t, "ann joined lobby", UserJoined{Room: "lobby", Name: "ann"}.Headline())
}

func TestRunOverWatermill(t *testing.T) {
	a := testutils.AppForTests(t, config.BackendWatermill)
	key := int64(3)

	result, err := Run(context.Background(), a.Bus, Options{
		Room:          "den",
		Name:          "bo",
		IntKey:        &key,
		SendToDefault: true,
		Settle:        300 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, result.Delivered)
	assert.Equal(t, []string{"joined", "joined#i:3"}, SortedNames(result.Received))
	assert.Equal(t, []string{"{Room:den Name:bo}"}, result.Received["joined"])
}
