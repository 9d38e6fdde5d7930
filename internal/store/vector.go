package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector serializes a float32 vector as a length-prefixed
// little-endian BLOB for storage in the messages.vector column.
func EncodeVector(vec []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, int32(len(vec))); err != nil {
		return nil, fmt.Errorf("encode vector length: %w", err)
	}
	for _, v := range vec {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("encode vector value: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeVector deserializes a BLOB written by EncodeVector back into a
// float32 vector. A nil or empty input decodes to a nil vector rather
// than an error, since messages awaiting embedding may store no BLOB at
// all.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("decode vector: truncated length prefix")
	}
	buf := bytes.NewReader(data)
	var length int32
	if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("decode vector length: %w", err)
	}
	if length < 0 {
		return nil, fmt.Errorf("decode vector: negative length %d", length)
	}
	expected := int(length) * 4
	if buf.Len() < expected {
		return nil, fmt.Errorf("decode vector: expected %d bytes, have %d", expected, buf.Len())
	}
	vec := make([]float32, length)
	for i := range vec {
		if err := binary.Read(buf, binary.LittleEndian, &vec[i]); err != nil {
			return nil, fmt.Errorf("decode vector value at %d: %w", i, err)
		}
	}
	return vec, nil
}

// ZeroVector returns the all-zero placeholder vector used to mark a
// message as not yet embedded.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// CosineSimilarity returns the cosine similarity between a and b, or 0 if
// either is empty or they differ in length (treated as incomparable
// rather than an error, since callers scan heterogeneous rows).
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
