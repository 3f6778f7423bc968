package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vitalsync/server/internal/models"
)

// Characters stripped from every client-supplied string before storage.
var strippedChars = map[rune]bool{
	'<': true, '>': true, '"': true, '\'': true, '`': true, '&': true,
}

// Sanitizer bounds and cleans client-supplied text and metadata documents
// before they reach storage.
type Sanitizer struct {
	maxDepth     int
	maxStringLen int
	maxMapKeys   int
	maxListLen   int
}

// NewSanitizer creates a sanitizer with the given caps.
func NewSanitizer(maxDepth, maxStringLen, maxMapKeys, maxListLen int) *Sanitizer {
	return &Sanitizer{
		maxDepth:     maxDepth,
		maxStringLen: maxStringLen,
		maxMapKeys:   maxMapKeys,
		maxListLen:   maxListLen,
	}
}

// CleanString strips markup-significant characters, trims whitespace and
// bounds the length.
func (s *Sanitizer) CleanString(in string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strippedChars[r] {
			return -1
		}
		return r
	}, in)
	cleaned = strings.TrimSpace(cleaned)

	if s.maxStringLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > s.maxStringLen {
			cleaned = string(runes[:s.maxStringLen])
		}
	}
	return cleaned
}

// SanitizeMetadata parses a raw metadata document into the bounded tagged
// tree, cleaning every string along the way, and re-encodes it for storage.
// Oversized maps and lists are truncated; nesting past the depth cap
// rejects the record.
func (s *Sanitizer) SanitizeMetadata(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, models.NewValidationError("metadata", "is not valid JSON")
	}

	value, err := s.toMeta(doc, 1)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(value)
	if err != nil {
		return nil, models.NewValidationError("metadata", "cannot be encoded")
	}
	return out, nil
}

func (s *Sanitizer) toMeta(v any, depth int) (models.MetaValue, error) {
	if depth > s.maxDepth {
		return models.MetaValue{}, models.NewValidationError("metadata",
			fmt.Sprintf("exceeds maximum nesting depth of %d", s.maxDepth))
	}

	switch val := v.(type) {
	case nil:
		// No null variant in the stored tree; nulls collapse to "".
		return models.MetaStr(""), nil
	case string:
		return models.MetaStr(s.CleanString(val)), nil
	case float64:
		return models.MetaNum(val), nil
	case bool:
		return models.MetaBoolVal(val), nil
	case []any:
		if s.maxListLen > 0 && len(val) > s.maxListLen {
			val = val[:s.maxListLen]
		}
		list := make([]models.MetaValue, 0, len(val))
		for _, item := range val {
			node, err := s.toMeta(item, depth+1)
			if err != nil {
				return models.MetaValue{}, err
			}
			list = append(list, node)
		}
		return models.MetaValue{Kind: models.MetaList, List: list}, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if s.maxMapKeys > 0 && len(keys) > s.maxMapKeys {
			keys = keys[:s.maxMapKeys]
		}
		m := make(map[string]models.MetaValue, len(keys))
		for _, k := range keys {
			node, err := s.toMeta(val[k], depth+1)
			if err != nil {
				return models.MetaValue{}, err
			}
			key := s.CleanString(k)
			if key == "" {
				continue
			}
			m[key] = node
		}
		return models.MetaValue{Kind: models.MetaMap, Map: m}, nil
	default:
		return models.MetaValue{}, models.NewValidationError("metadata", "holds an unsupported value type")
	}
}
