package solana

import (
	"bytes"
	"encoding/json"
	"math"
)

// Transaction is one record of the enhanced transactions API.
// This is our domain model, independent of the provider's response format.
//
// The provider treats every field as optional, so decoding is lenient: a
// field of the wrong JSON type is treated as absent, a transfer list that is
// not an array is treated as empty, and a record that is not an object
// decodes to a Transaction with every field absent.
type Transaction struct {
	Timestamp       *int64 // unix seconds, nil when absent
	FeePayer        string // empty when absent
	NativeTransfers []Transfer
	TokenTransfers  []TokenTransfer
}

// Transfer is a native SOL movement between two accounts.
type Transfer struct {
	FromUserAccount string
	ToUserAccount   string
}

// TokenTransfer is an SPL token movement between two accounts.
type TokenTransfer struct {
	Mint            string
	FromUserAccount string
	ToUserAccount   string
}

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	*t = Transaction{}

	fields, ok := decodeObject(data)
	if !ok {
		return nil
	}

	t.Timestamp = optUnixSeconds(fields["timestamp"])
	t.FeePayer = optString(fields["feePayer"])

	for _, raw := range decodeArray(fields["nativeTransfers"]) {
		nt, _ := decodeObject(raw)
		t.NativeTransfers = append(t.NativeTransfers, Transfer{
			FromUserAccount: optString(nt["fromUserAccount"]),
			ToUserAccount:   optString(nt["toUserAccount"]),
		})
	}

	for _, raw := range decodeArray(fields["tokenTransfers"]) {
		tt, _ := decodeObject(raw)
		t.TokenTransfers = append(t.TokenTransfers, TokenTransfer{
			Mint:            optString(tt["mint"]),
			FromUserAccount: optString(tt["fromUserAccount"]),
			ToUserAccount:   optString(tt["toUserAccount"]),
		})
	}

	return nil
}

// DecodeTransactions decodes a provider response body.
// Anything other than a JSON array yields zero transactions.
func DecodeTransactions(body []byte) []Transaction {
	raws := decodeArray(body)
	if len(raws) == 0 {
		return nil
	}

	txns := make([]Transaction, len(raws))
	for i, raw := range raws {
		// Transaction.UnmarshalJSON never fails.
		_ = txns[i].UnmarshalJSON(raw)
	}
	return txns
}

// decodeObject returns the fields of a JSON object, or false if data is not one.
func decodeObject(data []byte) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// decodeArray returns the elements of a JSON array, or nil if data is not one.
func decodeArray(data []byte) []json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil
	}
	return elems
}

// optString returns the string value of raw, or "" for any other JSON type.
func optString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// optUnixSeconds returns raw as whole unix seconds if it is a finite JSON number.
// A missing or null timestamp is absent.
func optUnixSeconds(raw json.RawMessage) *int64 {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	ts := int64(f)
	return &ts
}
