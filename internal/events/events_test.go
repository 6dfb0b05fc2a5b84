package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/logicbuild/internal/events"
)

func TestBus_DeliversToEverySubscriber(t *testing.T) {
	bus := events.NewBus()
	rec := events.NewRecorder(10)
	var seen []events.Type
	bus.Subscribe(rec.Handle)
	bus.Subscribe(func(e events.Event) { seen = append(seen, e.Type) })

	bus.Publish(events.Event{Type: events.LevelCompleted, BossID: 1, LevelID: 1, Stars: 3})

	assert.Equal(t, []events.Type{events.LevelCompleted}, seen)
	got := rec.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Stars)
	assert.False(t, got[0].At.IsZero())
	assert.Empty(t, rec.Drain())
}

func TestRecorder_DropsOldest(t *testing.T) {
	rec := events.NewRecorder(2)
	rec.Handle(events.Event{Type: events.StageCompleted, StageID: 1})
	rec.Handle(events.Event{Type: events.StageCompleted, StageID: 2})
	rec.Handle(events.Event{Type: events.StageCompleted, StageID: 3})

	got := rec.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].StageID)
	assert.Equal(t, 3, got[1].StageID)
}
