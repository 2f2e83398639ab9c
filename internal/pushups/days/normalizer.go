package days

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

// Normalized is the canonical day for a submission. Fallback is set when the
// timezone hint was missing or unknown and the default zone was used instead.
type Normalized struct {
	Day      Day
	Zone     string
	Fallback bool
}

// Normalizer maps a client supplied date (or "now") plus a timezone hint to a
// canonical Day. The server's own local zone never participates.
type Normalizer struct {
	defaultZone *time.Location
	now         func() time.Time
}

func NewNormalizer(defaultZone string, now func() time.Time) (*Normalizer, error) {
	if defaultZone == "" || defaultZone == "Local" {
		defaultZone = "UTC"
	}
	loc, err := time.LoadLocation(defaultZone)
	if err != nil {
		return nil, fmt.Errorf("load default zone [%s]: %w", defaultZone, err)
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		defaultZone: loc,
		now:         now,
	}, nil
}

func (n *Normalizer) DefaultZone() string {
	return n.defaultZone.String()
}

// Normalize returns the day for rawDate (YYYY-MM-DD) or, if rawDate is empty,
// for the current instant as seen in the hint's zone.
func (n *Normalizer) Normalize(rawDate, timezoneHint string) (Normalized, error) {
	loc, fallback := n.resolveZone(timezoneHint)
	result := Normalized{
		Zone:     loc.String(),
		Fallback: fallback,
	}

	rawDate = strings.TrimSpace(rawDate)
	if rawDate == "" {
		result.Day = FromDate(n.now().In(loc))
		return result, nil
	}

	t, err := time.ParseInLocation(Layout, rawDate, loc)
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: [%s] is not YYYY-MM-DD", ErrInvalidDate, rawDate)
	}
	result.Day = FromDate(t)

	return result, nil
}

func (n *Normalizer) Today(timezoneHint string) Normalized {
	// never fails without a raw date
	normalized, _ := n.Normalize("", timezoneHint)
	return normalized
}

// ValidZone reports whether name is a loadable IANA zone usable as a hint.
func ValidZone(name string) bool {
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

func (n *Normalizer) resolveZone(hint string) (*time.Location, bool) {
	hint = strings.TrimSpace(hint)
	if hint == "" || hint == "Local" {
		return n.defaultZone, true
	}
	loc, err := time.LoadLocation(hint)
	if err != nil {
		return n.defaultZone, true
	}
	return loc, false
}
