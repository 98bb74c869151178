package rq

import (
	"sync"
	"testing"
	"time"

	"github.com/jacnel/bundledrefs/bundle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_TwoPhaseUpdateLinked(t *testing.T) {
	p := NewProvider[int](1, Config{}, nil, nil, nil)
	b := p.NewBundle()

	p.PrepareBundles([]bundle.Interface[int]{b}, []int{42})
	ts := p.LinearizeUpdate(0, func(bundle.Timestamp) {})
	p.FinalizeBundles([]bundle.Interface[int]{b}, ts)

	succ, ok := b.Lookup(ts)
	require.True(t, ok)
	assert.Equal(t, 42, succ)
}

func TestProvider_CircularRepresentation(t *testing.T) {
	p := NewProvider[string](1, Config{Representation: RepresentationCircular, InitialCapacity: 2}, nil, nil, nil)
	b := p.NewBundle()

	for i := 0; i < 10; i++ {
		p.PrepareBundles([]bundle.Interface[string]{b}, []string{"v"})
		ts := p.LinearizeUpdate(0, func(bundle.Timestamp) {})
		p.FinalizeBundles([]bundle.Interface[string]{b}, ts)
	}
	assert.Equal(t, 10, b.Size())
}

func TestProvider_TraversalSeesOldestActive(t *testing.T) {
	p := NewProvider[int](2, Config{}, nil, nil, nil)

	ts1 := p.StartTraversal(0)
	assert.Equal(t, bundle.MinTimestamp, ts1)

	b := p.NewBundle()
	p.PrepareBundles([]bundle.Interface[int]{b}, []int{7})
	upTs := p.LinearizeUpdate(1, func(bundle.Timestamp) {})
	p.FinalizeBundles([]bundle.Interface[int]{b}, upTs)

	assert.Equal(t, ts1, p.OldestActiveTimestamp())
	p.EndTraversal(0)
	assert.Equal(t, bundle.NullTimestamp, p.OldestActiveTimestamp())
}

func TestProvider_TimestampRelaxationReusesValue(t *testing.T) {
	p := NewProvider[int](1, Config{TimestampRelaxation: 3}, nil, nil, nil)

	ts1 := p.nextTimestamp(0)
	ts2 := p.nextTimestamp(0)
	assert.Equal(t, ts1, ts2)
	ts3 := p.nextTimestamp(0)
	assert.NotEqual(t, ts1, ts3)
}

type recordingHost struct {
	mu      sync.Mutex
	bundles []bundle.Interface[int]
}

func (h *recordingHost) Sweep(visit func(bundle.Interface[int])) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, b := range h.bundles {
		visit(b)
	}
}

func TestProvider_BackgroundCleanupReclaims(t *testing.T) {
	host := &recordingHost{}
	p := NewProvider[int](1, Config{
		CleanupMode:             CleanupBackground,
		BackgroundSleepInterval: time.Millisecond,
	}, host, nil, nil)

	b := p.NewBundle()
	host.mu.Lock()
	host.bundles = append(host.bundles, b)
	host.mu.Unlock()

	for i := 0; i < 5; i++ {
		p.PrepareBundles([]bundle.Interface[int]{b}, []int{i})
		ts := p.LinearizeUpdate(0, func(bundle.Timestamp) {})
		p.FinalizeBundles([]bundle.Interface[int]{b}, ts)
	}

	p.StartCleanup()
	require.Eventually(t, func() bool {
		return b.Size() == 1
	}, time.Second, time.Millisecond)
	p.StopCleanup()
}
