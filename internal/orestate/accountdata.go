package orestate

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnrecognizedEncoding is returned when an account data field does not
// match any wire shape the RPC is known to emit.
var ErrUnrecognizedEncoding = errors.New("unrecognized account data encoding")

// NormalizeAccountData converts an account's data field into raw bytes.
//
// Solana RPC responses represent the data field in several shapes depending
// on the requested encoding and server version:
//   - a pair whose first element is a base64 string: ["<b64>", "base64"]
//   - a wrapper object holding that pair under "data"
//   - raw bytes when the caller already holds decoded data
//
// Anything else is rejected with ErrUnrecognizedEncoding. Normalizing is
// pure; reporting a skipped account is the caller's job.
func NormalizeAccountData(field any) ([]byte, error) {
	switch v := field.(type) {
	case []byte:
		return v, nil
	case []any:
		return decodeBase64Pair(v)
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty data pair", ErrUnrecognizedEncoding)
		}
		return decodeBase64String(v[0])
	case map[string]any:
		inner, ok := v["data"]
		if !ok {
			return nil, fmt.Errorf("%w: object without data field", ErrUnrecognizedEncoding)
		}
		pair, ok := inner.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: wrapped data is not a pair", ErrUnrecognizedEncoding)
		}
		return decodeBase64Pair(pair)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnrecognizedEncoding, field)
	}
}

// NormalizeAccountJSON normalizes a data field still in raw JSON form, as
// held by the RPC client.
func NormalizeAccountJSON(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty data field", ErrUnrecognizedEncoding)
	}
	var field any
	if err := json.Unmarshal(raw, &field); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedEncoding, err)
	}
	return NormalizeAccountData(field)
}

func decodeBase64Pair(pair []any) ([]byte, error) {
	if len(pair) == 0 {
		return nil, fmt.Errorf("%w: empty data pair", ErrUnrecognizedEncoding)
	}
	s, ok := pair[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: data pair head is %T, want string", ErrUnrecognizedEncoding, pair[0])
	}
	return decodeBase64String(s)
}

func decodeBase64String(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	return b, nil
}
