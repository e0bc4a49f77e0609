package watcher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/watcher"
)

type fakeStateStore struct {
	states map[string]model.SeriesState
	saves  int
}

func (f *fakeStateStore) Load() map[string]model.SeriesState {
	if f.states == nil {
		return map[string]model.SeriesState{}
	}
	return f.states
}

func (f *fakeStateStore) Save(states map[string]model.SeriesState) {
	f.states = states
	f.saves++
}

func newStatusEngine(store *fakeStateStore, sink *fakeSink, watch []string) *watcher.StatusEngine {
	return watcher.NewStatusEngine(watcher.StatusConfig{
		Watch: watch,
		Down:  []float64{70, 60, 50, 30, 10},
		Up:    []float64{80},
	}, sink, store, discardLogger())
}

func TestStatusEngine_FirstSightingIsQuiet(t *testing.T) {
	store := &fakeStateStore{}
	sink := &fakeSink{}
	engine := newStatusEngine(store, sink, []string{"api"})

	engine.Observe(context.Background(), map[string]float64{"api": 45.0})

	// Seeded at the current value; no crossing, but 45 is recorded.
	assert.Empty(t, sink.alerts)
	assert.Equal(t, 45.0, store.states["api"].Value)
	assert.False(t, store.states["api"].Degraded)
}

func TestStatusEngine_DownCrossingFiresAndDegrades(t *testing.T) {
	store := &fakeStateStore{states: map[string]model.SeriesState{
		"api": {Value: 75.0},
	}}
	sink := &fakeSink{}
	engine := newStatusEngine(store, sink, []string{"api"})

	engine.Observe(context.Background(), map[string]float64{"api": 55.0})

	// 75 to 55 crosses 70 and 60, one alert each.
	require.Len(t, sink.alerts, 2)
	assert.True(t, store.states["api"].Degraded)
}

func TestStatusEngine_UnwatchedIsDisplayOnly(t *testing.T) {
	store := &fakeStateStore{states: map[string]model.SeriesState{
		"other": {Value: 75.0},
	}}
	sink := &fakeSink{}
	engine := newStatusEngine(store, sink, []string{"api"})

	engine.Observe(context.Background(), map[string]float64{"other": 5.0})

	assert.Empty(t, sink.alerts)
	assert.Equal(t, 5.0, store.states["other"].Value)
	assert.False(t, store.states["other"].Degraded)
}

func TestStatusEngine_RecoveryNeedsCrossing(t *testing.T) {
	store := &fakeStateStore{states: map[string]model.SeriesState{
		"api": {Value: 85.0, Degraded: true},
	}}
	sink := &fakeSink{}
	engine := newStatusEngine(store, sink, []string{"api"})

	// Hovering above the up threshold without crossing it does not
	// clear the flag.
	engine.Observe(context.Background(), map[string]float64{"api": 90.0})

	assert.Empty(t, sink.alerts)
	assert.True(t, store.states["api"].Degraded)
}

func TestStatusEngine_RecoveryCrossingClears(t *testing.T) {
	store := &fakeStateStore{states: map[string]model.SeriesState{
		"api": {Value: 40.0, Degraded: true},
	}}
	sink := &fakeSink{}
	engine := newStatusEngine(store, sink, []string{"api"})

	engine.Observe(context.Background(), map[string]float64{"api": 85.0})

	require.Len(t, sink.alerts, 1)
	assert.Contains(t, sink.alerts[0].title, "recovered")
	assert.False(t, store.states["api"].Degraded)
}

func TestStatusEngine_DegradedPersistsAcrossPolls(t *testing.T) {
	store := &fakeStateStore{states: map[string]model.SeriesState{
		"api": {Value: 35.0},
	}}
	sink := &fakeSink{}
	engine := newStatusEngine(store, sink, []string{"api"})

	engine.Observe(context.Background(), map[string]float64{"api": 25.0})
	require.Len(t, sink.alerts, 1)
	require.True(t, engine.Degraded("api"))

	// Partial rebound below the up threshold keeps the flag.
	engine.Observe(context.Background(), map[string]float64{"api": 65.0})
	assert.True(t, engine.Degraded("api"))
	assert.Len(t, sink.alerts, 1)
}

func TestStatusEngine_SavesEveryPoll(t *testing.T) {
	store := &fakeStateStore{}
	sink := &fakeSink{}
	engine := newStatusEngine(store, sink, []string{"api"})

	engine.Observe(context.Background(), map[string]float64{"api": 90.0})
	engine.Observe(context.Background(), map[string]float64{"api": 88.0})

	assert.Equal(t, 2, store.saves)
}
