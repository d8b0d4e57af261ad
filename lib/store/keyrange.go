package store

import (
	"strconv"
	"strings"

	"github.com/tinylib/msgp/msgp"
)

const (
	// DefaultKeyWindow is the number of keys returned for an open-ended range ("start..")
	DefaultKeyWindow = 100

	rangeSeparator = ".."
)

// ParseKeyRange parses a key range of the form "start..end" into the half-open
// interval [start, end). Either bound may be omitted:
//
//	"5.."  -> [5, 105)
//	"..5"  -> [0, 5)
//	"2..7" -> [2, 7)
//
// ok is false for "..", a missing separator, non-integer or negative bounds
// and for start >= end.
func ParseKeyRange(spec string) (start, end int, ok bool) {
	parts := strings.Split(spec, rangeSeparator)
	if len(parts) != 2 {
		return 0, 0, false
	}

	rawStart, rawEnd := parts[0], parts[1]
	switch {
	case rawStart == "" && rawEnd == "":
		return 0, 0, false

	case rawEnd == "":
		s, err := strconv.Atoi(rawStart)
		if err != nil || s < 0 {
			return 0, 0, false
		}
		return s, s + DefaultKeyWindow, true

	case rawStart == "":
		e, err := strconv.Atoi(rawEnd)
		if err != nil || e <= 0 {
			return 0, 0, false
		}
		return 0, e, true

	default:
		s, err := strconv.Atoi(rawStart)
		if err != nil || s < 0 {
			return 0, 0, false
		}
		e, err := strconv.Atoi(rawEnd)
		if err != nil || e < 0 {
			return 0, 0, false
		}
		if s >= e {
			return 0, 0, false
		}
		return s, e, true
	}
}

// EncodeKeys encodes a list of keys as a MessagePack array of strings
func EncodeKeys(keys []string) []byte {
	size := msgp.ArrayHeaderSize
	for _, k := range keys {
		size += msgp.StringPrefixSize + len(k)
	}

	b := make([]byte, 0, size)
	b = msgp.AppendArrayHeader(b, uint32(len(keys)))
	for _, k := range keys {
		b = msgp.AppendString(b, k)
	}
	return b
}

// DecodeKeys decodes a MessagePack array of strings as produced by EncodeKeys
func DecodeKeys(b []byte) ([]string, error) {
	n, rest, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		var k string
		k, rest, err = msgp.ReadStringBytes(rest)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
