package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapes LIKE wildcards so user text matches literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func checkDimensions(chunks []Chunk, dimension int) error {
	for _, ch := range chunks {
		if len(ch.Embedding) != dimension {
			return fmt.Errorf("chunk %d has %d dimensions, store expects %d: %w",
				ch.Metadata.ChunkIndex, len(ch.Embedding), dimension, apperrors.ErrDimensionMismatch)
		}
	}

	return nil
}

func decodeMetadata(raw []byte) ChunkMetadata {
	var m ChunkMetadata
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &m) //nolint:errcheck // malformed metadata degrades to zero values
	}

	return m
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}

	return buf
}

func decodeVector(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}

	return floats
}

// euclidean distance, the metric pgvector's <-> uses
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return math.Sqrt(sum)
}
