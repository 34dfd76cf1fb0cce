package services

import "time"

const dateLayout = "2006-01-02"

// Clock supplies the current time in the configured reset timezone. The
// calendar day for streak purposes rolls over at midnight in that zone for
// every user; per-user zones would break the one-record-per-day unique key.
type Clock interface {
	Now() time.Time
}

// ZoneClock is the production clock pinned to one location.
type ZoneClock struct {
	loc *time.Location
}

// NewZoneClock resolves the zone name ("Local", "UTC", or an IANA name).
func NewZoneClock(zone string) (*ZoneClock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return &ZoneClock{loc: loc}, nil
}

func (c *ZoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// DateOf formats a time as the canonical YYYY-MM-DD ledger date.
func DateOf(t time.Time) string {
	return t.Format(dateLayout)
}
