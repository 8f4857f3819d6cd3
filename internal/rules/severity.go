package rules

import (
	"fmt"
	"strings"
)

// Severity is the reported level of a rule diagnostic.
type Severity uint8

const (
	// SeverityError marks a step that must be fixed.
	SeverityError Severity = iota + 1
	// SeverityWarning marks a step that should be fixed.
	SeverityWarning
	// SeverityInfo marks an informational diagnostic.
	SeverityInfo
	// SeverityHidden suppresses the diagnostic in output while keeping it fixable.
	SeverityHidden
)

var severityNames = [...]string{
	SeverityError:   "error",
	SeverityWarning: "warning",
	SeverityInfo:    "info",
	SeverityHidden:  "hidden",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) && severityNames[s] != "" {
		return severityNames[s]
	}
	return fmt.Sprintf("Severity(%d)", s)
}

// ParseSeverity resolves a severity name, ignoring case.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	case "hidden", "none":
		return SeverityHidden, nil
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
