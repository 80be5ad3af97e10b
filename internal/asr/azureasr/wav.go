package azureasr

import "encoding/binary"

// pcmToWAV wraps float32 samples in a 16-bit PCM mono WAV header, the same
// layout the teacher's apis/azure/wav.go builds for its push stream, just
// generalized to accept the probe's actual sample rate instead of a
// hardcoded 16kHz.
func pcmToWAV(samples []float32, rate int) []byte {
	const headerLen = 44
	buf := make([]byte, headerLen+len(samples)*2)
	pcm := buf[headerLen:]

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(buf)-8))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], channels)
	binary.LittleEndian.PutUint32(buf[24:], uint32(rate))
	binary.LittleEndian.PutUint32(buf[28:], uint32(rate*bitDepth*channels/8))
	binary.LittleEndian.PutUint16(buf[32:], bitDepth*channels/8)
	binary.LittleEndian.PutUint16(buf[34:], bitDepth)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(len(samples)*2))

	for i, s := range samples {
		v := s * 32768.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v)))
	}

	return buf
}
