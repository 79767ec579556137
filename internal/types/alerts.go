package types

import (
	"fmt"
	"sort"
	"strings"
)

// AlertKind identifies one of the recurring notification rules.
type AlertKind string

const (
	AlertKindDailySummary   AlertKind = "daily_summary"
	AlertKindSunnyPreAlert  AlertKind = "sunny_pre_alert"
	AlertKindForecastChange AlertKind = "forecast_change"
)

// AllAlertKinds lists every kind in evaluation order.
var AllAlertKinds = []AlertKind{
	AlertKindDailySummary,
	AlertKindSunnyPreAlert,
	AlertKindForecastChange,
}

// ParseAlertKind validates s against the closed set of kinds.
func ParseAlertKind(s string) (AlertKind, error) {
	k := AlertKind(strings.TrimSpace(s))
	for _, known := range AllAlertKinds {
		if k == known {
			return k, nil
		}
	}
	return "", NewAppError(ErrCodeValidationAlertKind, fmt.Sprintf("unknown alert kind %q", s), nil)
}

// AlertKindSet is the set of kinds a user has opted into.
type AlertKindSet map[AlertKind]struct{}

// NewAlertKindSet builds a set from the given kinds.
func NewAlertKindSet(kinds ...AlertKind) AlertKindSet {
	set := make(AlertKindSet, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set
}

// ParseAlertKindSet parses a list of kind names, rejecting unknown values.
func ParseAlertKindSet(names []string) (AlertKindSet, error) {
	set := make(AlertKindSet, len(names))
	for _, n := range names {
		k, err := ParseAlertKind(n)
		if err != nil {
			return nil, err
		}
		set[k] = struct{}{}
	}
	return set, nil
}

// Has reports whether k is in the set.
func (s AlertKindSet) Has(k AlertKind) bool {
	_, ok := s[k]
	return ok
}

// Slice returns the members in evaluation order.
func (s AlertKindSet) Slice() []AlertKind {
	out := make([]AlertKind, 0, len(s))
	for _, k := range AllAlertKinds {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Strings returns the member names sorted, for storage.
func (s AlertKindSet) Strings() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}
