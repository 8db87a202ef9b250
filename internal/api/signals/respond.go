package signals

import "time"

// fromEpochMs converts browser epoch milliseconds. Zero stays the zero time.
func fromEpochMs(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func optionalEpochMs(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromEpochMs(*ms)
	return &t
}

func optionalMs(ms *int64) *time.Duration {
	if ms == nil {
		return nil
	}
	d := time.Duration(*ms) * time.Millisecond
	return &d
}
