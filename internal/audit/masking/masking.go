package masking

import "strings"

const maskToken = "****"

var sensitiveKeys = map[string]bool{
	"iban":      true,
	"bank_iban": true,
	"bic":       true,
	"bank_bic":  true,
	"email":     true,
	"telephone": true,
	"phone":     true,
	"siret":     true,
}

// MaskSecret redacts a value while keeping its last four characters.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	runes := []rune(trimmed)
	if len(runes) <= 4 {
		return maskToken
	}
	return maskToken + string(runes[len(runes)-4:])
}

// IsSensitive reports whether values under key must be masked.
func IsSensitive(key string) bool {
	return sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
}

// MaskMetadata returns a copy of input where string values under
// sensitive keys are masked. Nested maps and slices are walked.
func MaskMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(value, IsSensitive(trimmedKey))
	}
	return masked
}

func maskValue(value any, sensitive bool) any {
	switch cast := value.(type) {
	case string:
		if sensitive {
			return MaskSecret(cast)
		}
		return cast
	case map[string]any:
		return MaskMetadata(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(item, sensitive))
		}
		return out
	default:
		return value
	}
}
