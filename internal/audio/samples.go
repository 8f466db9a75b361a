// internal/audio/samples.go
package audio

import (
	"encoding/binary"
	"math"
)

// bytesToFloat32 converts little-endian F32 frames to samples
func bytesToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples
}

// float32ToBytes writes samples as little-endian F32 into out, which must
// hold at least 4*len(samples) bytes
func float32ToBytes(samples []float32, out []byte) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
}
