package core

// XPBase is the incremental XP requirement between consecutive levels:
// advancing from level N to N+1 costs XPBase*N points.
const XPBase = 100

// LevelInfo is the derived view of a point total.
type LevelInfo struct {
	Level           int
	XPIntoLevel     int // points earned since reaching Level
	XPForNextLevel  int // points needed to go from Level to Level+1
	ProgressPercent int // 0..100 within the current level
	PointsToNext    int
}

// XPToReachLevel returns the cumulative points required to reach level n:
// level 1 requires 0, level 2 requires XPBase, level 3 requires 3*XPBase
// (triangular growth).
func XPToReachLevel(n int) int {
	if n <= 1 {
		return 0
	}
	return XPBase * (n - 1) * n / 2
}

// LevelFromPoints finds the largest level whose cumulative requirement is
// within total. Forward iteration is fine at realistic point totals; the loop
// terminates as soon as the next level's requirement exceeds total.
func LevelFromPoints(total int) LevelInfo {
	if total < 0 {
		total = 0
	}
	level := 1
	for XPToReachLevel(level+1) <= total {
		level++
	}

	into := total - XPToReachLevel(level)
	span := XPToReachLevel(level+1) - XPToReachLevel(level)
	percent := into * 100 / span
	if percent > 100 {
		percent = 100
	}
	return LevelInfo{
		Level:           level,
		XPIntoLevel:     into,
		XPForNextLevel:  span,
		ProgressPercent: percent,
		PointsToNext:    XPToReachLevel(level+1) - total,
	}
}
