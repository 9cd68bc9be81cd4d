package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrUnknownMessage = errors.New("protocol: unknown message type")
	ErrUnknownCodec   = errors.New("protocol: unknown codec")
	ErrEmptyMessage   = errors.New("protocol: empty message")
)

// Codec turns messages into websocket frames and back. Both codecs use the
// json struct tags so field names match on the wire.
type Codec interface {
	Name() string
	Binary() bool
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecByName resolves the codec query parameter. Empty means JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Binary() bool                       { return false }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// DecodeType reads the type field of a raw message.
func DecodeType(c Codec, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyMessage
	}
	var h Header
	if err := c.Unmarshal(data, &h); err != nil {
		return "", fmt.Errorf("decode header: %w", err)
	}
	if h.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrUnknownMessage)
	}
	return h.Type, nil
}

// Decode unmarshals a raw message into T.
func Decode[T any](c Codec, data []byte) (T, error) {
	var out T
	if err := c.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %T: %w", out, err)
	}
	return out, nil
}
