package domain

// conditionValue reads the snapshot statistic a condition type compares
// against. The second return is false for condition types this engine
// cannot evaluate from a snapshot (e.g. form-quality conditions that need
// per-session data); those never award.
func conditionValue(t ConditionType, snap ProgressSnapshot) (float64, bool) {
	switch t {
	case ConditionWorkoutCount:
		return float64(snap.TotalWorkouts), true
	case ConditionTotalCalories:
		return snap.TotalCalories, true
	case ConditionStreakDays:
		return float64(snap.CurrentStreak), true
	case ConditionLevel:
		return float64(snap.Level), true
	case ConditionTotalMinutes:
		return snap.TotalMinutes, true
	default:
		return 0, false
	}
}

// ConditionMet reports whether a statistics snapshot satisfies a badge
// condition. Unknown condition types evaluate to false rather than erroring.
func ConditionMet(cond BadgeCondition, snap ProgressSnapshot) bool {
	current, ok := conditionValue(cond.Type, snap)
	if !ok {
		return false
	}
	return current >= cond.Value
}

// ConditionProgress reports completion toward a badge condition as a
// percentage, for locked-badge views. Unknown condition types report 0.
func ConditionProgress(cond BadgeCondition, snap ProgressSnapshot) float64 {
	current, ok := conditionValue(cond.Type, snap)
	if !ok {
		return 0
	}
	return CompletionPercentage(current, cond.Value)
}
