package audit

import (
	"reflect"
	"sort"
	"strings"
)

// Redacted replaces sensitive values in diffs.
const Redacted = "[FILTERED]"

var sensitiveKeys = map[string]struct{}{
	"password":             {},
	"passwordhash":         {},
	"passwordconfirmation": {},
	"currentpassword":      {},
	"newpassword":          {},
	"token":                {},
	"sessiontoken":         {},
	"resettoken":           {},
	"refreshtoken":         {},
	"accesstoken":          {},
	"secret":               {},
	"mfasecret":            {},
	"backupcodes":          {},
	"mfabackupcodes":       {},
	"mfabackupcodesused":   {},
	"backupcode":           {},
	"mfacode":              {},
}

// IsSensitiveKey reports whether key names a credential or token. Case and
// the separators '_', '-', '.' and ' ' are ignored.
func IsSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[normalizeKey(key)]
	return ok
}

func normalizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.', ' ':
			return -1
		}
		if r >= 'A' && r <= 'Z' {
			return r - 'A' + 'a'
		}
		return r
	}, key)
}

// SanitizeMetadata returns a deep copy of md with sensitive keys removed
// at every nesting level. A nil or empty input returns nil.
func SanitizeMetadata(md map[string]any) map[string]any {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]any, len(md))
	for k, v := range md {
		if IsSensitiveKey(k) {
			continue
		}
		out[k] = sanitizeValue(v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if cleaned := SanitizeMetadata(t); cleaned != nil {
			return cleaned
		}
		return map[string]any{}
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			if !IsSensitiveKey(k) {
				out[k] = s
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sanitizeValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sanitizeValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Diff lists every field whose value differs between before and after,
// sorted by field name. Sensitive fields are reported with redacted values
// so a credential change is visible without exposing it.
func Diff(before, after map[string]any) []Change {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}

	fields := make([]string, 0, len(keys))
	for k := range keys {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var changes []Change
	for _, f := range fields {
		oldV, hadOld := before[f]
		newV, hasNew := after[f]
		if hadOld == hasNew && reflect.DeepEqual(oldV, newV) {
			continue
		}
		if IsSensitiveKey(f) {
			changes = append(changes, Change{Field: f, Old: redactIf(hadOld), New: redactIf(hasNew)})
			continue
		}
		changes = append(changes, Change{Field: f, Old: sanitizeValue(oldV), New: sanitizeValue(newV)})
	}
	return changes
}

func redactIf(present bool) any {
	if present {
		return Redacted
	}
	return nil
}
