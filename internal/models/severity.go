package models

import (
	"encoding/json"
	"fmt"
)

// Severity classifies an ingredient's risk, ordered from best to worst:
// excellent < good < moderate < concerning < avoid.
type Severity int

const (
	SeverityExcellent Severity = iota
	SeverityGood
	SeverityModerate
	SeverityConcerning
	SeverityAvoid
)

var severityNames = map[Severity]string{
	SeverityExcellent:  "excellent",
	SeverityGood:       "good",
	SeverityModerate:   "moderate",
	SeverityConcerning: "concerning",
	SeverityAvoid:      "avoid",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// WorseThan reports whether s carries more risk than other.
func (s Severity) WorseThan(other Severity) bool {
	return s > other
}

// MarshalJSON serializes the severity as its lowercase name, matching
// the stored record format.
func (s Severity) MarshalJSON() ([]byte, error) {
	name, ok := severityNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown severity %d", int(s))
	}
	return json.Marshal(name)
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a lowercase severity name back to its value.
func ParseSeverity(name string) (Severity, error) {
	for sev, n := range severityNames {
		if n == name {
			return sev, nil
		}
	}
	return SeverityModerate, fmt.Errorf("unknown severity %q", name)
}
