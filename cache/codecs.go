package cache

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackEncoder returns an Encoder that marshals values to msgpack.
func MsgpackEncoder[T any]() Encoder[T] {
	return func(value T) ([]byte, error) {
		return msgpack.Marshal(value)
	}
}

// MsgpackDecoder returns a Decoder that unmarshals msgpack to values.
func MsgpackDecoder[T any]() Decoder[T] {
	return func(data []byte) (T, error) {
		var value T
		err := msgpack.Unmarshal(data, &value)
		return value, err
	}
}

// JSONEncoder is used for channel payloads read by clients outside Go.
func JSONEncoder[T any]() Encoder[T] {
	return func(value T) ([]byte, error) {
		return json.Marshal(value)
	}
}

func JSONDecoder[T any]() Decoder[T] {
	return func(data []byte) (T, error) {
		var value T
		err := json.Unmarshal(data, &value)
		return value, err
	}
}
