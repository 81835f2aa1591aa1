package app

import "quiz-progress-service/internal/domain"

// MaxLevel is the highest level the calculator distinguishes. Its band width
// still fits a 32-bit int.
const MaxLevel = 4000

// floorLevel clamps level into [1, MaxLevel] so the band width is never zero
// and never overflows.
func floorLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// XPRequiredForNextLevel is the width of a level's XP band: level^2 * 100.
func XPRequiredForNextLevel(level int) int {
	level = floorLevel(level)
	return level * level * 100
}

// ProgressPercent is the position of totalXP within the level band, in [0, 100).
func ProgressPercent(level, totalXP int) float64 {
	required := XPRequiredForNextLevel(level)
	if totalXP < 0 {
		totalXP = 0
	}
	return float64(totalXP%required) / float64(required) * 100
}

// LevelProgressFor bundles the calculator outputs for display.
func LevelProgressFor(level, totalXP int) domain.LevelProgress {
	return domain.LevelProgress{
		Level:                  floorLevel(level),
		TotalXP:                totalXP,
		XPRequiredForNextLevel: XPRequiredForNextLevel(level),
		ProgressPercent:        ProgressPercent(level, totalXP),
	}
}
