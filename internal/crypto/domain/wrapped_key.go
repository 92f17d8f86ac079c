package domain

// WrappedKey is a secret encrypted under a key-encryption-key for storage at rest.
// The plaintext is never persisted; the algorithm travels with the ciphertext so a
// KEK algorithm change does not orphan existing records.
type WrappedKey struct {
	Algorithm  Algorithm
	Ciphertext []byte
	Nonce      []byte
}

// IsZero reports whether the wrapped key carries no ciphertext.
func (w WrappedKey) IsZero() bool {
	return len(w.Ciphertext) == 0
}
