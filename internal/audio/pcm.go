package audio

import "encoding/binary"

// FullScale is the float-to-int16 scale factor. Unit float samples map to
// [-FullScale, FullScale) before saturation.
const FullScale = 32768.0

// ShortToFloat converts int16 samples to unit-range float32 into dst.
// dst must have capacity >= len(in). Returns the used portion.
func ShortToFloat(in []int16, dst []float32) []float32 {
	dst = dst[:len(in)]
	for i, s := range in {
		dst[i] = float32(s) / FullScale
	}
	return dst
}

// FloatToShort scales a unit-range sample to int16, saturating at the
// representable bounds. clipped reports whether saturation happened.
func FloatToShort(f float32) (s int16, clipped bool) {
	v := float64(f) * FullScale
	switch {
	case v >= 32767.0:
		return 32767, v > 32767.0
	case v <= -32768.0:
		return -32768, v < -32768.0
	default:
		return int16(v), false
	}
}

// Int16ToBytesInto writes s16le bytes into dst, avoiding allocation.
// dst must have capacity >= len(samples)*2. Returns the used portion.
func Int16ToBytesInto(samples []int16, dst []byte) []byte {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(s))
	}
	return dst[:len(samples)*2]
}

// BytesToInt16Into decodes s16le bytes into dst. A trailing odd byte is ignored.
// dst must have capacity >= len(data)/2. Returns the used portion.
func BytesToInt16Into(data []byte, dst []int16) []int16 {
	n := len(data) / 2
	dst = dst[:n]
	for i := range dst {
		dst[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return dst
}
