package masking

// Masker is the interface for code-based maskers that need structural
// awareness beyond regex pattern matching: distinguishing a wallet
// signing key from an unrelated long hex/base64 string requires looking
// at the value's shape, not just a generic "looks like a secret" regex.
type Masker interface {
	// Name returns the unique identifier for this masker. Must match an
	// entry in builtinCodeMaskers() to be selectable via a pattern group.
	Name() string

	// AppliesTo performs a lightweight check on whether this masker
	// should process the data. Should be fast (string contains, not parsing).
	AppliesTo(data string) bool

	// Mask applies masking logic and returns the masked result. Must be
	// defensive: return original data on parse/processing errors.
	Mask(data string) string
}
