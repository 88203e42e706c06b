package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photon-ccm/photon/types"
)

func TestBus(t *testing.T) {
	bus := NewBus(2)
	require.Zero(t, bus.Subscribers())

	a := bus.Subscribe()
	b := bus.Subscribe()
	require.Equal(t, 2, bus.Subscribers())

	bus.Publish(loaded(1))
	require.Equal(t, types.Hash{1}, (<-a.Events()).Proposal.OpHash)
	require.Equal(t, types.Hash{1}, (<-b.Events()).Proposal.OpHash)

	b.Close()
	require.Equal(t, 1, bus.Subscribers())
	_, ok := <-b.Events()
	require.False(t, ok)
	// closing twice is fine
	b.Close()

	bus.Publish(loaded(2))
	require.Equal(t, types.Hash{2}, (<-a.Events()).Proposal.OpHash)
	a.Close()
}

func TestBus_SlowSubscriberIsDropped(t *testing.T) {
	bus := NewBus(2)
	slow := bus.Subscribe()
	fast := bus.Subscribe()
	defer fast.Close()

	bus.Publish(loaded(1), loaded(2))
	for range 2 {
		<-fast.Events()
	}
	// slow has full buffer now
	bus.Publish(loaded(3))
	require.Equal(t, 1, bus.Subscribers())
	require.Equal(t, types.Hash{3}, (<-fast.Events()).Proposal.OpHash)

	// buffered events are still delivered before the channel is closed
	var got []types.Event
	for e := range slow.Events() {
		got = append(got, e)
	}
	require.Len(t, got, 2)
	slow.Close()
}

func TestNewBus_DefaultBuffer(t *testing.T) {
	bus := NewBus(0)
	s := bus.Subscribe()
	defer s.Close()
	require.Equal(t, DefaultSubscriptionBuffer, cap(s.c))
}
