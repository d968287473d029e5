package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedClockAdvance(t *testing.T) {
	c := NewFixed(time.Unix(0, 0))
	require.Equal(t, time.Unix(0, 0), c.Now())
	c.Advance(5 * time.Second)
	require.Equal(t, time.Unix(5, 0), c.Now())
}

func TestSeededIDGenDeterministic(t *testing.T) {
	a := NewSeededIDGen("agent")
	b := NewSeededIDGen("agent")

	first := a.NewID()
	require.Equal(t, first, b.NewID())
	require.NotEqual(t, first, a.NewID())
}
