package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct {
	N int
}

func TestEventsVisibleNextCycle(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(p ping) { got = append(got, p.N) })

	Emit(b, ping{N: 1})
	b.DispatchAll()
	require.Empty(t, got, "emitted events stay in the back buffer until the swap")

	b.SwapBuffers()
	b.DispatchAll()
	require.Equal(t, []int{1}, got)
}

func TestSwapClearsOldFront(t *testing.T) {
	b := NewBus()
	count := 0
	Subscribe(b, func(ping) { count++ })

	Emit(b, ping{N: 1})
	b.SwapBuffers()
	b.DispatchAll()

	b.SwapBuffers() // nothing new emitted
	b.DispatchAll()
	require.Equal(t, 1, count, "an event is delivered exactly once")
}

type alphaEvent struct{}

type betaEvent struct{}

func TestDispatchTypeOrderStable(t *testing.T) {
	b := NewBus()
	var order []string
	Subscribe(b, func(alphaEvent) { order = append(order, "alpha") })
	Subscribe(b, func(betaEvent) { order = append(order, "beta") })

	Emit(b, betaEvent{})
	Emit(b, alphaEvent{})
	b.SwapBuffers()
	b.DispatchAll()
	require.Equal(t, []string{"alpha", "beta"}, order, "types dispatch in name order regardless of emit order")
}

func TestMultipleHandlersInOrder(t *testing.T) {
	b := NewBus()
	var order []string
	Subscribe(b, func(ping) { order = append(order, "first") })
	Subscribe(b, func(ping) { order = append(order, "second") })

	Emit(b, ping{})
	b.SwapBuffers()
	b.DispatchAll()
	require.Equal(t, []string{"first", "second"}, order)
}
