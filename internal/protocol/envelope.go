package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Version is the realtime protocol version carried in every envelope.
const Version = 1

// ErrVersion marks an envelope with a foreign protocol version. Callers drop
// the whole message.
var ErrVersion = errors.New("protocol version mismatch")

// Envelope wraps every message: {v, t, payload}.
type Envelope struct {
	V       int   `json:"v" msgpack:"v"`
	T       int64 `json:"t" msgpack:"t"`
	Payload any   `json:"payload" msgpack:"payload"`
}

// Wrap builds an outbound envelope stamped with nowMs.
func Wrap(payload any, nowMs int64) Envelope {
	return Envelope{V: Version, T: nowMs, Payload: payload}
}

// Codec encodes outbound envelopes and decodes inbound payloads.
type Codec interface {
	Name() string
	Encode(env Envelope) ([]byte, error)
	// Decode unwraps data and decodes its payload into out. A message
	// without an envelope is treated as a bare payload.
	Decode(data []byte, out any) error
}

// JSONCodec is the default text codec.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(env Envelope) ([]byte, error) { return json.Marshal(env) }

type jsonIn struct {
	V       *int            `json:"v"`
	Payload json.RawMessage `json:"payload"`
}

func (JSONCodec) Decode(data []byte, out any) error {
	var in jsonIn
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	raw := []byte(in.Payload)
	if in.Payload == nil {
		raw = data
	} else if in.V != nil && *in.V != Version {
		return ErrVersion
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// MsgpackCodec is the binary codec used by TCP and binary WebSocket clients.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Encode(env Envelope) ([]byte, error) {
	enc, err := msgpack.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return enc, nil
}

type msgpackIn struct {
	V       *int               `msgpack:"v"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

func (MsgpackCodec) Decode(data []byte, out any) error {
	var in msgpackIn
	if err := msgpack.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	raw := []byte(in.Payload)
	if in.Payload == nil {
		raw = data
	} else if in.V != nil && *in.V != Version {
		return ErrVersion
	}
	if len(raw) == 0 {
		return nil
	}
	if err := msgpack.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// CodecByName resolves a codec from configuration.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}
