package classify

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// decodeObject parses an LLM response expected to be a single JSON object.
// It tries a strict parse first, then falls back to extracting the first
// balanced {...} substring, tolerating code fences and surrounding prose.
func decodeObject(raw string, out any) error {
	return decodePayload(raw, out, '{', '}')
}

// decodeArray is decodeObject for a JSON array payload.
func decodeArray(raw string, out any) error {
	return decodePayload(raw, out, '[', ']')
}

func decodePayload(raw string, out any, open, close byte) error {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == open {
		if err := json.Unmarshal([]byte(trimmed), out); err == nil {
			return nil
		}
	}

	candidate, ok := extractBalanced(trimmed, open, close)
	if !ok {
		return fmt.Errorf("%w: no %c...%c payload found", ErrMalformedResponse, open, close)
	}
	if err := json.Unmarshal([]byte(candidate), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// extractBalanced returns the first balanced delimiter-bounded substring,
// respecting JSON string literals and escapes.
func extractBalanced(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
