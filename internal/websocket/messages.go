package websocket

import (
	"encoding/json"
	"fmt"
)

// Frame types the client may send on a live session stream
const (
	FrameTranscriptChunk = "transcript_chunk"
	FrameFinalize        = "finalize"
)

// ClientFrame is one JSON text frame from the client. Binary frames
// carry raw audio and bypass this structure.
type ClientFrame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// optional audio parameters, honored on the first frame only
	SampleRate int    `json:"sample_rate,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Language   string `json:"language,omitempty"`
}

// ParseClientFrame decodes and validates an incoming text frame
func ParseClientFrame(data []byte) (ClientFrame, error) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return ClientFrame{}, fmt.Errorf("malformed frame: %w", err)
	}
	if frame.Type == "" {
		return ClientFrame{}, fmt.Errorf("frame missing type field")
	}
	return frame, nil
}
