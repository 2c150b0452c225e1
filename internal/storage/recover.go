package storage

import (
	"encoding/json"
	"errors"
	"regexp"
)

// Text-level repairs for the malformed-structure issues seen in practice:
// trailing separators before a closing brace or bracket, and bare
// (unquoted) object keys. Repaired text is not guaranteed semantically
// valid, which is why repaired decodes are gated behind the caller's
// validator whenever one is supplied.
var (
	trailingSeparator = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

func repairText(raw []byte) []byte {
	repaired := trailingSeparator.ReplaceAll(raw, []byte("$1"))
	repaired = unquotedKey.ReplaceAll(repaired, []byte(`$1"$2":`))
	return repaired
}

// rawForRecovery reads the key directly from the substrate, bypassing the
// read cache: recovery wants the bytes at rest, not an in-process copy.
func (s *Store) rawForRecovery(key string) ([]byte, *StorageError) {
	if !s.Available() {
		s.mu.Lock()
		probeErr := s.probeErr
		s.mu.Unlock()
		return nil, probeErr
	}
	raw, err := s.substrate.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Classify(key, err)
	}
	return raw, nil
}

// heal writes a successfully recovered value back through the normal
// write path so the repaired form replaces the corrupt bytes at rest.
func heal[T any](s *Store, key string, v T) {
	if e := SetJSON(s, key, v); e != nil {
		s.report(e)
	}
}

// Recover attempts to rescue a corrupted value with two escalating
// strategies: a straight decode, then a decode of text-repaired bytes.
// When both fail the caller's default is returned with a non-recoverable
// corrupted_data error. For array-shaped data prefer RecoverSlice, which
// adds item-level salvage.
func Recover[T any](s *Store, key string, def T, validate func(T) error) (T, *StorageError) {
	raw, serr := s.rawForRecovery(key)
	if raw == nil {
		return def, serr
	}

	check := func(v T) bool {
		return validate == nil || validate(v) == nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err == nil && check(v) {
		return v, nil
	}

	var repaired T
	if err := json.Unmarshal(repairText(raw), &repaired); err == nil && check(repaired) {
		heal(s, key, repaired)
		return repaired, nil
	}

	e := NewError(KindCorruptedData, key, "all recovery strategies failed")
	e.Recoverable = false
	s.report(e)
	return def, e
}

// RecoverSlice rescues array-shaped data with three escalating strategies:
// straight decode, text-repaired decode, and finally a scan of the raw
// text for individually well-formed item substrings. Every strategy is
// gated by the caller's partial validator: a decode that parses but holds
// invalid items escalates to item-level salvage. The second return value
// is how many items the final strategy salvaged (zero when an earlier
// strategy succeeded).
func RecoverSlice[E any](s *Store, key string, valid func(E) bool) ([]E, int, *StorageError) {
	raw, serr := s.rawForRecovery(key)
	if raw == nil {
		return nil, 0, serr
	}

	allValid := func(items []E) bool {
		if valid == nil {
			return true
		}
		for _, it := range items {
			if !valid(it) {
				return false
			}
		}
		return true
	}

	var items []E
	if err := json.Unmarshal(raw, &items); err == nil && allValid(items) {
		return items, 0, nil
	}

	var repaired []E
	if err := json.Unmarshal(repairText(raw), &repaired); err == nil && allValid(repaired) {
		heal(s, key, repaired)
		return repaired, 0, nil
	}

	var salvaged []E
	for _, candidate := range extractObjects(string(raw)) {
		var item E
		if err := json.Unmarshal([]byte(candidate), &item); err != nil {
			continue
		}
		if valid != nil && !valid(item) {
			continue
		}
		salvaged = append(salvaged, item)
	}
	if len(salvaged) > 0 {
		heal(s, key, salvaged)
		e := NewError(KindCorruptedData, key, "partial recovery: salvaged items from corrupt array")
		s.report(e)
		return salvaged, len(salvaged), e
	}

	e := NewError(KindCorruptedData, key, "all recovery strategies failed")
	e.Recoverable = false
	s.report(e)
	return nil, 0, e
}

// extractObjects scans raw text for balanced top-level {...} substrings,
// honoring string literals and escapes, so individually intact items can
// be pulled out of a damaged array.
func extractObjects(raw string) []string {
	var out []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range raw {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, raw[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}
