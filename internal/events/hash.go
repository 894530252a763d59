package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CanonicalJSON serializes the record deterministically: keys sorted
// lexicographically at every level, no insignificant whitespace. Two
// records with the same content always produce the same bytes.
func CanonicalJSON(rec *Record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// Hash returns the SHA-256 hex digest of the record's canonical
// serialization. The cache uses it to decide whether a re-import actually
// changed anything.
func Hash(rec *Record) (string, error) {
	canonical, err := CanonicalJSON(rec)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
