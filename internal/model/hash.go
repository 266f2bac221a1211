package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Identity field names as they appear in the canonical form.
const (
	FieldAmount          = "amount"
	FieldAssetType       = "assetType"
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldOwner           = "owner"
	FieldSymbol          = "symbol"
	FieldTransactionDate = "transactionDate"
	FieldType            = "type"
)

// IdentityFields returns the eight identity fields keyed by feed name.
// Every key is always present; nil values stay nil.
func (r *TransactionRecord) IdentityFields() map[string]*string {
	return map[string]*string{
		FieldAmount:          r.Amount,
		FieldAssetType:       r.AssetType,
		FieldFirstName:       r.FirstName,
		FieldLastName:        r.LastName,
		FieldOwner:           r.Owner,
		FieldSymbol:          r.Symbol,
		FieldTransactionDate: r.TransactionDate,
		FieldType:            r.Type,
	}
}

// CanonicalIdentity renders the identity fields as compact JSON with sorted keys,
// no HTML escaping and null for missing values.
func (r *TransactionRecord) CanonicalIdentity() []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// A map of string pointers cannot fail to encode.
	_ = enc.Encode(r.IdentityFields())
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// Hash returns the record's content hash: lowercase hex SHA-256 of CanonicalIdentity.
func (r *TransactionRecord) Hash() string {
	sum := sha256.Sum256(r.CanonicalIdentity())
	return hex.EncodeToString(sum[:])
}
