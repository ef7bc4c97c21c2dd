// SPDX-License-Identifier: EPL-2.0

package utils

import "encoding/binary"

func Float32ToInt16(x float32) int16 {
	// Clamp and scale
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// Use 32767 for positive max to avoid overflow
	return int16(x * 32767.0)
}

func Int16ToFloat32(v int16) float32 {
	return float32(v) / 32768.0
}

// SampleToFloat32 decodes one packed sample of bits width.
// 8-bit samples are unsigned, wider ones two's complement.
func SampleToFloat32(b []byte, bits int, order binary.ByteOrder) float32 {
	switch bits {
	case 8:
		return (float32(b[0]) - 128) / 128.0
	case 16:
		return float32(int16(order.Uint16(b))) / 32768.0
	case 24:
		var v int32
		if order == binary.BigEndian {
			v = int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
		} else {
			v = int32(b[2])<<16 | int32(b[1])<<8 | int32(b[0])
		}
		// sign extend from 24 bits
		v = v << 8 >> 8
		return float32(v) / 8388608.0
	case 32:
		return float32(int32(order.Uint32(b))) / 2147483648.0
	default:
		return 0
	}
}

// PutSample encodes v as a packed sample of bits width.
func PutSample(b []byte, v int, bits int, order binary.ByteOrder) {
	switch bits {
	case 8:
		b[0] = byte(v + 128)
	case 16:
		order.PutUint16(b, uint16(int16(v)))
	case 24:
		u := uint32(int32(v))
		if order == binary.BigEndian {
			b[0], b[1], b[2] = byte(u>>16), byte(u>>8), byte(u)
		} else {
			b[0], b[1], b[2] = byte(u), byte(u>>8), byte(u>>16)
		}
	case 32:
		order.PutUint32(b, uint32(int32(v)))
	}
}

// FrameAmplitudes appends the first channel of every whole frame in pcm to
// dst as a float32 in [-1, 1].
func FrameAmplitudes(dst []float32, pcm []byte, channels, bits int, order binary.ByteOrder) []float32 {
	width := (bits + 7) / 8
	frame := width * channels
	if frame == 0 {
		return dst
	}

	for off := 0; off+frame <= len(pcm); off += frame {
		dst = append(dst, SampleToFloat32(pcm[off:off+width], bits, order))
	}

	return dst
}

// DownmixInt16 averages interleaved frames of src into mono dst and returns
// the number of frames written.
func DownmixInt16(dst []int16, src []int16, channels int) int {
	if channels <= 1 {
		return copy(dst, src)
	}

	frames := min(len(src)/channels, len(dst))

	switch channels {
	case 2: // Stereo (most common)
		for f := range frames {
			idx := f << 1 // f * 2
			dst[f] = int16((int32(src[idx]) + int32(src[idx+1])) / 2)
		}
	default:
		for f := range frames {
			var sum int32
			base := f * channels
			for c := range channels {
				sum += int32(src[base+c])
			}
			dst[f] = int16(sum / int32(channels))
		}
	}

	return frames
}
