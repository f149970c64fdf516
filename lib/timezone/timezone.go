package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

// auction sites publish end dates in US-Eastern, so date math has to
// happen in that location no matter where the collector runs
func Now() time.Time {
	return time.Now().In(Location)
}
