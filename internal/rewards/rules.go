package rewards

import "time"

const msPerDay = 24 * 60 * 60 * 1000

// DayDiff buckets the elapsed time between two activities into whole days:
// floor(elapsed ms / 86 400 000). It is not a calendar comparison, so two
// activities 23h apart across midnight are 0 days apart.
func DayDiff(last, now time.Time) int64 {
	ms := now.Sub(last).Milliseconds()
	if ms < 0 {
		return (ms - msPerDay + 1) / msPerDay
	}
	return ms / msPerDay
}

// Streak is the state the streak machine runs on.
type Streak struct {
	Current        int
	Longest        int
	LastActivityAt *time.Time
}

// NextStreak applies one activity at now. A same-bucket activity (dayDiff 0)
// and a clock that moved backwards leave the counters unchanged; only
// LastActivityAt moves.
func NextStreak(s Streak, now time.Time) Streak {
	next := s
	switch {
	case s.LastActivityAt == nil:
		next.Current = 1
	default:
		switch diff := DayDiff(*s.LastActivityAt, now); {
		case diff == 1:
			next.Current = s.Current + 1
		case diff > 1:
			next.Current = 1
		}
	}
	if next.Current > next.Longest {
		next.Longest = next.Current
	}

	at := now
	next.LastActivityAt = &at
	return next
}

// RunningMean folds value into an average over oldCount prior values.
// The first value becomes the average as-is.
func RunningMean(oldAvg float64, oldCount int, value float64) float64 {
	if oldCount <= 0 {
		return value
	}
	return (oldAvg*float64(oldCount) + value) / float64(oldCount+1)
}

type levelTier struct {
	level      int
	minAverage float64
	minLessons int
}

// Checked top-down; the first satisfied tier wins.
var levelTiers = []levelTier{
	{level: 10, minAverage: 90, minLessons: 20},
	{level: 8, minAverage: 80, minLessons: 15},
	{level: 6, minAverage: 70, minLessons: 10},
	{level: 4, minAverage: 60, minLessons: 5},
	{level: 2, minAverage: 0, minLessons: 2},
}

// LevelFor maps a student's average score and completed lesson count to a level.
func LevelFor(averageScore float64, lessonsCompleted int) int {
	for _, tier := range levelTiers {
		if averageScore >= tier.minAverage && lessonsCompleted >= tier.minLessons {
			return tier.level
		}
	}
	return 1
}
