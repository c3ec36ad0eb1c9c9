package pointer

// To returns a pointer to the provided value
func To[T any](value T) *T {
	return &value
}

// OrDefault returns the pointer if not nil, otherwise a pointer to the default value
func OrDefault[T any](value *T, defaultValue T) *T {
	if value != nil {
		return value
	}
	return &defaultValue
}

// IfValid returns a pointer to the value if it's valid, otherwise nil
func IfValid[T any](valid bool, value T) *T {
	if valid {
		return &value
	}
	return nil
}

// Copy returns a pointer that's a copy of the provided value
func Copy[T any](value *T) *T {
	if value == nil {
		return nil
	}
	return To(*value)
}

// Uint64IfNonZero returns a pointer to value, or nil when it's zero. Used for
// optional numeric overrides where zero means "unset".
func Uint64IfNonZero(value uint64) *uint64 {
	return IfValid(value != 0, value)
}
