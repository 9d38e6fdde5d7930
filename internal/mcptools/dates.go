package mcptools

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// parseDateRange parses from/to as YYYY-MM-DD in UTC. to is treated as
// inclusive by advancing it 24h, so a row dated exactly on the end day is
// still matched by an exclusive "< to" comparison downstream.
func parseDateRange(from, to string) (time.Time, time.Time, error) {
	var fromTime, toTime time.Time
	var err error
	if from != "" {
		fromTime, err = time.ParseInLocation(dateLayout, from, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q: want YYYY-MM-DD", from)
		}
	}
	if to != "" {
		toTime, err = time.ParseInLocation(dateLayout, to, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q: want YYYY-MM-DD", to)
		}
		toTime = toTime.Add(24 * time.Hour)
	}
	return fromTime, toTime, nil
}
