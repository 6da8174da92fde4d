package model

import (
	"fmt"
	"strings"
)

// JurisdictionKey identifies a regulatory scope. Locality is empty for state-level records.
type JurisdictionKey struct {
	State    string `json:"state"`
	Locality string `json:"locality,omitempty"`
}

// NewJurisdictionKey builds a normalized key
func NewJurisdictionKey(state, locality string) JurisdictionKey {
	return JurisdictionKey{
		State:    strings.ToUpper(strings.TrimSpace(state)),
		Locality: strings.Join(strings.Fields(locality), " "),
	}
}

// ParseJurisdictionKey accepts "CA", "CA/San Diego" and "San Diego, CA"
func ParseJurisdictionKey(raw string) (JurisdictionKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return JurisdictionKey{}, fmt.Errorf("empty jurisdiction")
	}

	var key JurisdictionKey
	switch {
	case strings.Contains(raw, "/"):
		parts := strings.SplitN(raw, "/", 2)
		key = NewJurisdictionKey(parts[0], parts[1])
	case strings.Contains(raw, ","):
		idx := strings.LastIndex(raw, ",")
		key = NewJurisdictionKey(raw[idx+1:], raw[:idx])
	default:
		key = NewJurisdictionKey(raw, "")
	}

	if err := key.Validate(); err != nil {
		return JurisdictionKey{}, err
	}
	return key, nil
}

// Validate checks the state code shape
func (k JurisdictionKey) Validate() error {
	if len(k.State) != 2 {
		return fmt.Errorf("invalid state code %q: expected two letters", k.State)
	}
	for _, r := range k.State {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("invalid state code %q: expected two letters", k.State)
		}
	}
	return nil
}

// IsStateLevel reports whether the key names a whole state
func (k JurisdictionKey) IsStateLevel() bool {
	return k.Locality == ""
}

// String returns the canonical form used in reports ("CA" or "CA/San Diego")
func (k JurisdictionKey) String() string {
	if k.Locality == "" {
		return k.State
	}
	return k.State + "/" + k.Locality
}

// Display returns a human-readable name ("San Diego, CA")
func (k JurisdictionKey) Display() string {
	if k.Locality == "" {
		return k.State
	}
	return k.Locality + ", " + k.State
}

// Contains reports whether other falls inside the scope named by k.
// An empty scope contains everything.
func (k JurisdictionKey) Contains(other JurisdictionKey) bool {
	if k.State == "" {
		return true
	}
	if k.State != other.State {
		return false
	}
	if k.Locality == "" {
		return true
	}
	return strings.EqualFold(k.Locality, other.Locality)
}
