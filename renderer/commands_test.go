package renderer_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/pbr/renderer"
)

func TestPulseColor(t *testing.T) {
	base := mgl32.Vec4{0.8, 0.4, 0.2, 0.5}

	tests := []struct {
		seconds float64
		factor  float32
	}{
		{0, 0.625},
		{0.5, 1},
		{1.5, 0.25},
		{2, 0.625},
	}

	for _, tt := range tests {
		got := renderer.PulseColor(base, tt.seconds)
		want := mgl32.Vec4{base[0] * tt.factor, base[1] * tt.factor, base[2] * tt.factor, base[3]}
		if !got.ApproxEqualThreshold(want, 1e-5) {
			t.Errorf("PulseColor(%v) = %v, want %v", tt.seconds, got, want)
		}
	}
}
