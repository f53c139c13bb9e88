package scheduler

import "time"

func hoursToDuration(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}
