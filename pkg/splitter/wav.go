package splitter

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WAVSplitter decodes RIFF/WAVE files with interleaved PCM samples and
// de-interleaves them into two mono WAV files.
type WAVSplitter struct{}

// NewWAVSplitter returns a Transform for stereo PCM WAV content.
func NewWAVSplitter() *WAVSplitter {
	return &WAVSplitter{}
}

type wavFormat struct {
	audioFormat   uint16
	numChannels   uint16
	sampleRate    uint32
	bitsPerSample uint16
}

// Split implements Transform.
func (s *WAVSplitter) Split(data []byte) (*Result, error) {
	format, samples, err := parseWAV(data)
	if err != nil {
		return nil, err
	}

	if format.numChannels != 2 {
		return nil, fmt.Errorf("%w: %d channel(s)", ErrNotStereo, format.numChannels)
	}

	bytesPerSample := int(format.bitsPerSample) / 8
	frameSize := bytesPerSample * 2
	frames := len(samples) / frameSize

	left := make([]byte, 0, frames*bytesPerSample)
	right := make([]byte, 0, frames*bytesPerSample)
	for i := 0; i < frames; i++ {
		off := i * frameSize
		left = append(left, samples[off:off+bytesPerSample]...)
		right = append(right, samples[off+bytesPerSample:off+frameSize]...)
	}

	return &Result{
		Left:   encodeMonoWAV(format, left),
		Right:  encodeMonoWAV(format, right),
		Format: "wav",
	}, nil
}

// parseWAV walks the RIFF chunk list and returns the fmt descriptor and the
// raw interleaved sample data.
func parseWAV(data []byte) (*wavFormat, []byte, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnsupportedFormat)
	}

	var format *wavFormat
	var samples []byte

	off := 12
	for off+8 <= len(data) {
		chunkID := string(data[off : off+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+chunkSize > len(data) {
			return nil, nil, fmt.Errorf("%w: truncated %q chunk", ErrUnsupportedFormat, chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, nil, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedFormat)
			}
			format = &wavFormat{
				audioFormat:   binary.LittleEndian.Uint16(data[body : body+2]),
				numChannels:   binary.LittleEndian.Uint16(data[body+2 : body+4]),
				sampleRate:    binary.LittleEndian.Uint32(data[body+4 : body+8]),
				bitsPerSample: binary.LittleEndian.Uint16(data[body+14 : body+16]),
			}
		case "data":
			samples = data[body : body+chunkSize]
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		off = body + chunkSize + chunkSize%2
	}

	if format == nil || samples == nil {
		return nil, nil, fmt.Errorf("%w: missing fmt or data chunk", ErrUnsupportedFormat)
	}
	if format.audioFormat != 1 {
		return nil, nil, fmt.Errorf("%w: non-PCM format %d", ErrUnsupportedFormat, format.audioFormat)
	}
	if format.bitsPerSample == 0 || format.bitsPerSample%8 != 0 {
		return nil, nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, format.bitsPerSample)
	}
	if format.numChannels == 0 {
		return nil, nil, fmt.Errorf("%w: zero channels", ErrUnsupportedFormat)
	}
	return format, samples, nil
}

// encodeMonoWAV wraps raw mono samples in a minimal RIFF/WAVE container,
// preserving the source sample rate and bit depth.
func encodeMonoWAV(src *wavFormat, samples []byte) []byte {
	bytesPerSample := uint32(src.bitsPerSample) / 8
	dataSize := uint32(len(samples))

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, src.sampleRate)
	binary.Write(&buf, binary.LittleEndian, src.sampleRate*bytesPerSample) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(bytesPerSample))        // block align
	binary.Write(&buf, binary.LittleEndian, src.bitsPerSample)

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(samples)

	return buf.Bytes()
}
