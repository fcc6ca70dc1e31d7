package record

import (
	"slices"
	"strings"
)

const (
	// minIdentityParts is the number of identifying fields below which the
	// fallback fields are mixed in.
	minIdentityParts = 2
	fallbackFields   = 5
	fallbackValueLen = 100
)

// Identity is the content derived identity of a record. Records with equal
// values for the same identifying fields share an Identity; nothing stronger
// is guaranteed and collisions are possible.
type Identity string

// IdentifyingFields returns the ordered field list contributing to an
// Identity for the given time field.
func IdentifyingFields(timeField string) []string {
	if timeField == "" {
		timeField = DefaultTimeField
	}
	return []string{timeField, "host", "source", "log_offset"}
}

// Hash computes the identity of fields. Each identifying field that is present
// and non-null contributes "field:value". When fewer than two contribute, up to
// five other fields in ascending name order are appended with values truncated
// to 100 characters. Parts are joined with "|".
func Hash(fields map[string]any, timeField string) Identity {
	identifying := IdentifyingFields(timeField)

	parts := make([]string, 0, len(identifying)+fallbackFields)
	for _, f := range identifying {
		v, ok := fields[f]
		if !ok || v == nil {
			continue
		}
		parts = append(parts, f+":"+Stringify(v))
	}

	if len(parts) < minIdentityParts {
		names := make([]string, 0, len(fields))
		for k := range fields {
			if k == SourceField || slices.Contains(identifying, k) {
				continue
			}
			names = append(names, k)
		}
		slices.Sort(names)

		for _, k := range names[:min(len(names), fallbackFields)] {
			parts = append(parts, k+":"+truncate(Stringify(fields[k]), fallbackValueLen))
		}
	}

	return Identity(strings.Join(parts, "|"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
