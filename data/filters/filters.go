// Package filters resolves the event list filter state of a request against
// the state remembered from earlier requests and parses it into typed
// predicates.
package filters

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eventboard/data/models"
)

const (
	KeyPage        = "page"
	KeyClear       = "clear"
	KeyTitle       = "title"
	KeyCategory    = "category"
	KeyFeatures    = "features"
	KeyDateStart   = "date_start"
	KeyDateEnd     = "date_end"
	KeyIsPrivate   = "is_private"
	KeyIsAvailable = "is_available"
	KeyFullness    = "fullness"
	KeySortBy      = "sortBy"
)

// ErrInvalidFilter is wrapped by every error returned from Parse.
var ErrInvalidFilter = errors.New("invalid filter")

// Resolution is the outcome of Resolve.
type Resolution struct {
	// Effective holds the parameters the listing is built from.
	Effective url.Values
	// Persist is what the caller should remember for the next request. An
	// empty Persist means the remembered state must be deleted.
	Persist url.Values
	// Cleared reports an explicit clear request.
	Cleared bool
}

// Resolve merges the current request parameters with the stored filter
// state.
//
// A clear request drops everything except the page number. A request that
// only turns the page keeps the stored filters and updates the page. Any other
// parameter replaces the stored filters wholesale.
func Resolve(current, stored url.Values) Resolution {
	if current.Has(KeyClear) {
		effective := url.Values{}
		if page := current.Get(KeyPage); page != "" {
			effective.Set(KeyPage, page)
		}
		return Resolution{Effective: effective, Cleared: true}
	}

	if len(stored) > 0 && pageOnly(current) {
		effective := clone(stored)
		effective.Del(KeyPage)
		if page := current.Get(KeyPage); page != "" {
			effective.Set(KeyPage, page)
		}
		return Resolution{Effective: effective, Persist: compact(effective)}
	}

	effective := clone(current)
	return Resolution{Effective: effective, Persist: compact(effective)}
}

func pageOnly(v url.Values) bool {
	for key := range v {
		if key != KeyPage {
			return false
		}
	}
	return true
}

func clone(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for key, vals := range v {
		out[key] = append([]string(nil), vals...)
	}
	return out
}

// compact drops empty values and keys left without values.
func compact(v url.Values) url.Values {
	out := url.Values{}
	for key, vals := range v {
		for _, val := range vals {
			if strings.TrimSpace(val) != "" {
				out.Add(key, val)
			}
		}
	}
	return out
}

// Event is the typed form of an event list filter mapping. Nil pointers,
// empty slices and false flags mean "not set".
type Event struct {
	Title       string
	CategoryID  *int64
	FeatureIDs  []int64
	StartAfter  *time.Time
	StartBefore *time.Time
	IsPrivate   bool
	Available   bool
	Fullness    *models.Fullness
	Page        int
}

// IsZero reports whether no predicate is set.
func (f Event) IsZero() bool {
	return f.Title == "" && f.CategoryID == nil && len(f.FeatureIDs) == 0 &&
		f.StartAfter == nil && f.StartBefore == nil && !f.IsPrivate &&
		!f.Available && f.Fullness == nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// Parse converts a filter mapping into an Event filter. Unknown keys are
// ignored and keys holding only empty values are treated as not set.
func Parse(v url.Values) (Event, error) {
	f := Event{Page: 1}

	if s := first(v, KeyPage); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			return Event{}, invalid(KeyPage, s)
		}
		f.Page = page
	}

	f.Title = first(v, KeyTitle)

	if s := first(v, KeyCategory); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Event{}, invalid(KeyCategory, s)
		}
		f.CategoryID = &id
	}

	seen := map[int64]bool{}
	for _, s := range v[KeyFeatures] {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Event{}, invalid(KeyFeatures, s)
		}
		if !seen[id] {
			seen[id] = true
			f.FeatureIDs = append(f.FeatureIDs, id)
		}
	}

	var err error
	if f.StartAfter, err = parseTime(v, KeyDateStart); err != nil {
		return Event{}, err
	}
	if f.StartBefore, err = parseTime(v, KeyDateEnd); err != nil {
		return Event{}, err
	}

	if s := first(v, KeyIsPrivate); s != "" {
		b, err := parseBool(s)
		if err != nil {
			return Event{}, invalid(KeyIsPrivate, s)
		}
		f.IsPrivate = b
	}

	if s := first(v, KeyIsAvailable); s != "" {
		b, err := parseBool(s)
		if err != nil {
			return Event{}, invalid(KeyIsAvailable, s)
		}
		f.Available = b
	}

	if s := first(v, KeyFullness); s != "" {
		fullness, err := models.ParseFullness(s)
		if err != nil {
			return Event{}, invalid(KeyFullness, s)
		}
		f.Fullness = &fullness
	}

	return f, nil
}

// first returns the first non-empty value of key.
func first(v url.Values, key string) string {
	for _, s := range v[key] {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func parseTime(v url.Values, key string) (*time.Time, error) {
	s := first(v, key)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, invalid(key, s)
}

// parseBool also accepts the "on" value sent by HTML checkboxes.
func parseBool(s string) (bool, error) {
	if strings.EqualFold(s, "on") {
		return true, nil
	}
	return strconv.ParseBool(s)
}

func invalid(key, value string) error {
	return fmt.Errorf("%w: %s=%q", ErrInvalidFilter, key, value)
}
