package types

const redactedPlaceholder = "***REDACTED***"

// SecretString holds a credential such as the database URL. String and
// MarshalJSON return a placeholder so the value never reaches logs or
// config dumps; Unmask returns the raw value for drivers that need it.
type SecretString string

func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedPlaceholder + `"`), nil
}

// Unmask returns the plaintext value.
func (s SecretString) Unmask() string {
	return string(s)
}

// IsSet reports whether a value was provided.
func (s SecretString) IsSet() bool {
	return s != ""
}
