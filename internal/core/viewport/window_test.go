package viewport

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name   string
		geom   Geometry
		length int
		want   Window
	}{
		{
			name:   "mid list",
			geom:   Geometry{ScrollTop: 3000, ItemHeight: 30, ContainerHeight: 300},
			length: 1000,
			want:   Window{Start: 95, End: 115},
		},
		{
			name:   "top of list",
			geom:   Geometry{ScrollTop: 0, ItemHeight: 30, ContainerHeight: 300},
			length: 1000,
			want:   Window{Start: 0, End: 20},
		},
		{
			name:   "partial row rounds up",
			geom:   Geometry{ScrollTop: 0, ItemHeight: 30, ContainerHeight: 310},
			length: 1000,
			want:   Window{Start: 0, End: 21},
		},
		{
			name:   "short list",
			geom:   Geometry{ScrollTop: 0, ItemHeight: 30, ContainerHeight: 300},
			length: 7,
			want:   Window{Start: 0, End: 7},
		},
		{
			name:   "scroll past the end is clamped",
			geom:   Geometry{ScrollTop: 10, ItemHeight: 1, ContainerHeight: 8},
			length: 10,
			want:   Window{Start: 0, End: 10},
		},
		{
			name:   "empty list",
			geom:   Geometry{ScrollTop: 100, ItemHeight: 30, ContainerHeight: 300},
			length: 0,
			want:   Window{},
		},
		{
			name:   "zero item height",
			geom:   Geometry{ScrollTop: 100, ItemHeight: 0, ContainerHeight: 300},
			length: 1000,
			want:   Window{Start: 0, End: DefaultVisibleRows + 2*Overscan},
		},
		{
			name:   "unknown container height",
			geom:   Geometry{ScrollTop: 0, ItemHeight: 1},
			length: 1000,
			want:   Window{Start: 0, End: DefaultVisibleRows + 2*Overscan},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.geom, tt.length))
		})
	}
}

func TestCompute_Coverage(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for range 5000 {
		g := Geometry{
			ItemHeight:      1 + rng.IntN(40),
			ContainerHeight: 1 + rng.IntN(2000),
		}
		length := rng.IntN(3000)
		g.ScrollTop = rng.IntN(length*g.ItemHeight + 1)

		w := Compute(g, length)
		visible := (g.ContainerHeight + g.ItemHeight - 1) / g.ItemHeight

		if !assert.True(t, 0 <= w.Start && w.Start <= w.End && w.End <= length, "bounds %+v len=%d geom=%+v", w, length, g) {
			return
		}
		if !assert.GreaterOrEqual(t, w.Len(), min(length, visible), "coverage %+v len=%d geom=%+v", w, length, g) {
			return
		}
	}
}

func TestLayoutFor(t *testing.T) {
	l := LayoutFor(Window{Start: 95, End: 115}, 30, 1000)

	assert.Equal(t, Layout{SpacerHeight: 30000, Offset: 2850}, l)
}

func TestNearBottom(t *testing.T) {
	g := Geometry{ItemHeight: 1, ContainerHeight: 20}

	g.ScrollTop = 0
	assert.False(t, NearBottom(g, 100, 10))

	g.ScrollTop = 75
	assert.True(t, NearBottom(g, 100, 10))

	g.ScrollTop = 80
	assert.True(t, NearBottom(g, 100, 10), "exactly at the bottom")

	g.ScrollTop = 0
	assert.False(t, NearBottom(g, 15, 10), "content does not overflow")

	assert.Equal(t, 5, DistanceToBottom(Geometry{ScrollTop: 75, ItemHeight: 1, ContainerHeight: 20}, 100))
}
