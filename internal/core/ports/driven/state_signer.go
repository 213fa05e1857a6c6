package driven

// StateSigner produces and verifies tamper-evident opaque values.
type StateSigner interface {
	// Sign returns payload + "." + hex(HMAC-SHA256(payload)).
	Sign(payload []byte) string

	// Verify returns the payload and true if the signature matches.
	// It never panics; malformed input yields (nil, false).
	Verify(token string) ([]byte, bool)
}
