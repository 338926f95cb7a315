package net

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gunzgo/server/internal/protocol"
)

// maxFrame bounds one TCP frame, header included.
const maxFrame = 65535

// ReadFrame reads one length-prefixed frame from r.
// Wire format: [2 bytes LE: total length including header][payload].
// Returns the payload bytes (without the 2-byte length header).
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	payloadLen := totalLen - 2
	if payloadLen <= 0 {
		return nil, fmt.Errorf("invalid frame length: %d", totalLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", payloadLen, err)
	}
	return payload, nil
}

// WriteFrame writes one length-prefixed frame to w.
// Wire format: [2 bytes LE: len(data)+2][data].
func WriteFrame(w io.Writer, data []byte) error {
	totalLen := len(data) + 2
	if totalLen > maxFrame {
		return fmt.Errorf("frame too large: %d", totalLen)
	}
	buf := make([]byte, totalLen)
	binary.LittleEndian.PutUint16(buf[:2], uint16(totalLen))
	copy(buf[2:], data)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

var errNoOp = errors.New("message without op code")

// Framer attaches the op code to an encoded envelope.
type Framer interface {
	Codec() protocol.Codec
	Encode(op protocol.OpCode, env protocol.Envelope) ([]byte, error)
	// Decode splits a message into its op code and the codec bytes the
	// match decodes.
	Decode(msg []byte) (protocol.OpCode, []byte, error)
	Binary() bool
}

// NewFramer picks the framing for a codec. JSON messages carry the op as a
// top-level field; binary codecs prefix it as 4 bytes LE.
func NewFramer(codec protocol.Codec) Framer {
	if codec.Name() == "json" {
		return jsonFramer{}
	}
	return binaryFramer{codec: codec}
}

type jsonFramer struct{}

type jsonFrame struct {
	Op protocol.OpCode `json:"op"`
	protocol.Envelope
}

func (jsonFramer) Codec() protocol.Codec { return protocol.JSONCodec{} }
func (jsonFramer) Binary() bool          { return false }

func (jsonFramer) Encode(op protocol.OpCode, env protocol.Envelope) ([]byte, error) {
	return json.Marshal(jsonFrame{Op: op, Envelope: env})
}

func (jsonFramer) Decode(msg []byte) (protocol.OpCode, []byte, error) {
	var head struct {
		Op *protocol.OpCode `json:"op"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return 0, nil, fmt.Errorf("decode frame: %w", err)
	}
	if head.Op == nil {
		return 0, nil, errNoOp
	}
	return *head.Op, msg, nil
}

type binaryFramer struct {
	codec protocol.Codec
}

func (f binaryFramer) Codec() protocol.Codec { return f.codec }
func (binaryFramer) Binary() bool            { return true }

func (f binaryFramer) Encode(op protocol.OpCode, env protocol.Envelope) ([]byte, error) {
	body, err := f.codec.Encode(env)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(out[:4], uint32(op))
	copy(out[4:], body)
	return out, nil
}

func (binaryFramer) Decode(msg []byte) (protocol.OpCode, []byte, error) {
	if len(msg) < 4 {
		return 0, nil, errNoOp
	}
	return protocol.OpCode(binary.LittleEndian.Uint32(msg[:4])), msg[4:], nil
}
