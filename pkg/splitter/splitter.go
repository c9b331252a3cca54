package splitter

import "errors"

var (
	// ErrUnsupportedFormat means the payload is not audio this service can
	// decode. Permanent: the same bytes would fail identically on retry.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrNotStereo means the audio decoded fine but does not carry exactly
	// two channels, so there is nothing to split.
	ErrNotStereo = errors.New("audio is not stereo")
)

// Result holds the two mono channels produced from one stereo file.
type Result struct {
	Left   []byte
	Right  []byte
	Format string // encoding of the channel buffers, e.g. "wav"
}

// Transform splits a stereo audio file into its two mono channels. It is a
// pure function of its input: the same bytes always produce the same two
// buffers, which keeps retried processing idempotent.
type Transform interface {
	Split(data []byte) (*Result, error)
}
