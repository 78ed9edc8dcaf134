// Package encoding provides text encoding utilities for PackFile table formats.
package encoding

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrInvalidText is returned when bytes are not valid in the expected encoding.
var ErrInvalidText = errors.New("invalid encoded text")

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// UTF16LEToUTF8 converts UTF-16LE bytes to a UTF-8 string.
// An odd byte count is rejected; unpaired surrogates become U+FFFD.
func UTF16LEToUTF8(data []byte) (string, error) {
	if len(data)%2 != 0 {
		return "", ErrInvalidText
	}
	result, _, err := transform.Bytes(utf16LE.NewDecoder(), data)
	if err != nil {
		return "", errors.Join(ErrInvalidText, err)
	}
	return string(result), nil
}

// UTF8ToUTF16LE converts a UTF-8 string to UTF-16LE bytes.
func UTF8ToUTF16LE(s string) ([]byte, error) {
	result, _, err := transform.Bytes(utf16LE.NewEncoder(), []byte(s))
	if err != nil {
		return nil, errors.Join(ErrInvalidText, err)
	}
	return result, nil
}

// UTF8Bytes validates single-byte-unit string data and returns it as a string.
func UTF8Bytes(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrInvalidText
	}
	return string(data), nil
}

// NormalizePackedFilePath normalizes a packed file path for case-insensitive lookup.
func NormalizePackedFilePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimPrefix(path, "/")
	return strings.ToLower(path)
}

// NullTerminated returns the bytes before the first NUL and the index just past it.
// If there is no NUL the second value is -1.
func NullTerminated(data []byte) ([]byte, int) {
	idx := bytes.IndexByte(data, 0)
	if idx < 0 {
		return nil, -1
	}
	return data[:idx], idx + 1
}
