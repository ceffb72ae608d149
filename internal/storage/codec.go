package storage

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Records are msgpack-encoded using their json field names, so a record
// reads the same in either encoding.
const structTag = "json"

// Marshal encodes v as msgpack.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag(structTag)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes msgpack data into v.
func Unmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag(structTag)
	return dec.Decode(v)
}
