// Package storage provides the opaque key-value persistence used by the
// repository cache (§4.I). Grounded in the teacher's storage/record.go Record/MakeKey/
// MakePrefix shape, adapted to drop the teacher's internal util.BytesToObject
// dependency in favor of encoding/json directly.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// ErrRecordNotFound indicates that a record was not found.
var ErrRecordNotFound = fmt.Errorf("record not found")

const (
	// KeyPrefixSeparator separates a joined prefix from the key proper.
	KeyPrefixSeparator = ";"
	prefixSeparator    = ":"
)

// Record represents one item in the database.
type Record struct {
	Key    []byte `json:"key"`
	Value  []byte `json:"value"`
	Prefix []byte `json:"prefix"`
}

// IsEmpty checks whether the record is empty.
func (r *Record) IsEmpty() bool {
	return len(r.Key) == 0 && len(r.Value) == 0
}

// Scan unmarshals the record's value into dest.
func (r *Record) Scan(dest interface{}) error {
	if err := json.Unmarshal(r.Value, dest); err != nil {
		return errors.Wrap(err, "failed to decode record value")
	}
	return nil
}

// MakePrefix joins prefix segments with ":".
func MakePrefix(prefixes ...[]byte) (result []byte) {
	return bytes.Join(prefixes, []byte(prefixSeparator))
}

// SplitPrefix splits a joined prefix back into its individual parts.
func SplitPrefix(prefixes []byte) [][]byte {
	return bytes.Split(prefixes, []byte(prefixSeparator))
}

// MakeKey constructs a storage key from key and prefixes.
func MakeKey(key []byte, prefixes ...[]byte) []byte {
	prefix := MakePrefix(prefixes...)
	sep := []byte(KeyPrefixSeparator)
	if len(key) == 0 || len(prefix) == 0 {
		sep = []byte{}
	}
	return append(prefix, append(sep, key...)...)
}

// GetKey returns the record's full prefixed key.
func (r *Record) GetKey() []byte {
	return MakeKey(r.Key, r.Prefix)
}

// Equal reports whether two records have the same key and value.
func (r *Record) Equal(other *Record) bool {
	return bytes.Equal(r.Key, other.Key) && bytes.Equal(r.Value, other.Value)
}

// NewRecord creates a Record, joining prefixes and storing them alongside
// the unprefixed key.
func NewRecord(key, value []byte, prefixes ...[]byte) *Record {
	return &Record{Key: key, Value: value, Prefix: MakePrefix(prefixes...)}
}

// NewFromKeyValue splits a fully-prefixed key (as stored) back into a
// Record with its prefix and bare key separated.
func NewFromKeyValue(key []byte, value []byte) *Record {
	var k, p []byte

	parts := bytes.SplitN(key, []byte(KeyPrefixSeparator), 2)
	switch len(parts) {
	case 2:
		p, k = parts[0], parts[1]
	case 1:
		k = parts[0]
	}

	return &Record{Key: k, Value: value, Prefix: p}
}
