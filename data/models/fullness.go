package models

import (
	"fmt"
	"strings"
)

// Fullness is the occupancy legend of an event.
type Fullness int

const (
	// FullnessFree means at least half of the places are still available.
	FullnessFree Fullness = iota
	// FullnessMiddle means fewer than half of the places remain.
	FullnessMiddle
	// FullnessFull means no places remain.
	FullnessFull
)

var fullnessNames = [...]string{"free", "middle", "full"}
var fullnessLegends = [...]string{"<=50%", ">50%", "sold-out"}

// Classify returns the fullness legend for an event with the given capacity
// and enrollment count. Remaining == capacity/2 is FREE.
func Classify(capacity, enrolled int) Fullness {
	remaining := capacity - enrolled
	switch {
	case remaining <= 0:
		return FullnessFull
	case 2*remaining >= capacity:
		return FullnessFree
	default:
		return FullnessMiddle
	}
}

// ParseFullness accepts a legend name ("free", "middle", "full") or its
// ordinal ("0", "1", "2").
func ParseFullness(s string) (Fullness, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range fullnessNames {
		if s == name || s == fmt.Sprint(i) {
			return Fullness(i), nil
		}
	}
	return 0, fmt.Errorf("unknown fullness %q", s)
}

func (f Fullness) valid() bool {
	return f >= FullnessFree && f <= FullnessFull
}

func (f Fullness) String() string {
	if !f.valid() {
		return fmt.Sprintf("Fullness(%d)", int(f))
	}
	return fullnessNames[f]
}

// Legend is the human readable occupancy label shown in listings.
func (f Fullness) Legend() string {
	if !f.valid() {
		return ""
	}
	return fullnessLegends[f]
}

func (f Fullness) MarshalText() ([]byte, error) {
	if !f.valid() {
		return nil, fmt.Errorf("invalid fullness %d", int(f))
	}
	return []byte(f.String()), nil
}

func (f *Fullness) UnmarshalText(b []byte) error {
	parsed, err := ParseFullness(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Predicate renders the SQL condition equivalent to Classify(capacity,
// enrolled) == f, where capacity and enrolled are SQL expressions.
func (f Fullness) Predicate(capacity, enrolled string) string {
	remaining := fmt.Sprintf("(%s - %s)", capacity, enrolled)
	switch f {
	case FullnessFull:
		return fmt.Sprintf("%s <= 0", remaining)
	case FullnessFree:
		return fmt.Sprintf("%s > 0 AND 2 * %s >= %s", remaining, remaining, capacity)
	case FullnessMiddle:
		return fmt.Sprintf("%s > 0 AND 2 * %s < %s", remaining, remaining, capacity)
	}
	return "FALSE"
}

// PlacesLeftLabel renders the remaining places followed by the legend, e.g.
// "3(>50%)".
func PlacesLeftLabel(capacity, enrolled int) string {
	remaining := capacity - enrolled
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%d(%s)", remaining, Classify(capacity, enrolled).Legend())
}
