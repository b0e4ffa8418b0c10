package domain

import "math"

// XPKey identifies one experience record: a user within a scope
// (a community, guild, or channel group).
type XPKey struct {
	UserID  int64
	ScopeID int64
}

// XPRecord is the durable accumulated experience for one key.
type XPRecord struct {
	UserID  int64
	ScopeID int64
	XP      int64
}

// XPDelta is one pending gain applied by a buffer flush.
type XPDelta struct {
	UserID  int64
	ScopeID int64
	Amount  int64
}

// LevelStats describes a user's position on the level curve.
type LevelStats struct {
	Level      int64
	LevelXP    int64
	RequiredXP int64
	TotalXP    int64
}

// CalculateLevelStats derives level statistics from total XP using the
// quadratic level curve: total XP required for level L is (9L² + 63L)/2.
func CalculateLevelStats(totalXP int64) LevelStats {
	if totalXP < 0 {
		totalXP = 0
	}

	level := LevelByTotalXP(totalXP)

	return LevelStats{
		Level:      level,
		LevelXP:    totalXP - TotalXPForLevel(level),
		RequiredXP: RequiredXPForNextLevel(level),
		TotalXP:    totalXP,
	}
}

// LevelByTotalXP inverts the level curve.
func LevelByTotalXP(totalXP int64) int64 {
	if totalXP < 0 {
		totalXP = 0
	}

	return int64(-7.0/2 + math.Sqrt(float64(8*totalXP+441))/6)
}

// TotalXPForLevel returns the cumulative XP needed to reach a level.
func TotalXPForLevel(level int64) int64 {
	return (9*level*level + 63*level) / 2
}

// RequiredXPForNextLevel returns the XP span of the level after the given one.
func RequiredXPForNextLevel(level int64) int64 {
	return 9*(level+1) + 27
}
