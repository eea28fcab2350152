package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorBlobRoundTrip(t *testing.T) {
	v := []float32{0.25, -1.5, 3e-7}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% \_x\\`, escapeLike(`100% _x\`))
}

func TestL2Distance(t *testing.T) {
	assert.InDelta(t, 5.0, l2Distance([]float32{0, 0}, []float32{3, 4}), 1e-9)
}
