package alert

import (
	"github.com/pkg/errors"
	"time"
)

// Window restricts alerting to a daily trading session and to fresh quotes.
// The zero value allows everything.
type Window struct {
	Enabled     bool
	Open        time.Duration // offset from local midnight
	Close       time.Duration
	Location    *time.Location
	MaxQuoteAge time.Duration
}

// ParseWindow builds a window from "HH:MM" session bounds and an IANA zone
// name. An empty zone means the local zone.
func ParseWindow(open, close, zone string, maxQuoteAge time.Duration) (Window, error) {
	o, err := parseClock(open)
	if err != nil {
		return Window{}, errors.Wrap(err, "alert window open")
	}
	c, err := parseClock(close)
	if err != nil {
		return Window{}, errors.Wrap(err, "alert window close")
	}
	if c < o {
		return Window{}, errors.Errorf("alert window closes (%s) before it opens (%s)", close, open)
	}
	loc := time.Local
	if zone != "" {
		if loc, err = time.LoadLocation(zone); err != nil {
			return Window{}, errors.Wrapf(err, "alert window timezone %q", zone)
		}
	}
	return Window{Enabled: true, Open: o, Close: c, Location: loc, MaxQuoteAge: maxQuoteAge}, nil
}

// Allows reports whether a quote stamped quoteTS may raise alerts at now.
// Both session bounds are inclusive.
func (w Window) Allows(now time.Time, quoteTS int64) bool {
	if !w.Enabled {
		return true
	}
	loc := w.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	sinceMidnight := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute
	if sinceMidnight < w.Open || sinceMidnight > w.Close {
		return false
	}
	if w.MaxQuoteAge <= 0 {
		return true
	}
	if quoteTS <= 0 {
		return false
	}
	age := now.Sub(time.Unix(quoteTS, 0))
	return age >= 0 && age < w.MaxQuoteAge
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid clock %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
