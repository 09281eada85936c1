package validate

import "strings"

// Required reports whether every value is non-blank.
func Required(values ...string) bool {
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			return false
		}
	}
	return true
}

// OneOf reports whether value, ignoring case and surrounding space, is one of allowed.
func OneOf[T ~string](value T, allowed ...T) bool {
	normalized := strings.ToLower(strings.TrimSpace(string(value)))
	for _, candidate := range allowed {
		if normalized == strings.ToLower(string(candidate)) {
			return true
		}
	}
	return false
}
