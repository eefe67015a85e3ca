package threats

// ImpactFromSeverity maps an AI severity score to the impact value
// folded into the composite readiness input. Negative or zero; the
// descending threshold chain keeps it total for out-of-range input.
func ImpactFromSeverity(score int) float64 {
	switch {
	case score >= 9:
		return -0.4
	case score >= 7:
		return -0.3
	case score >= 5:
		return -0.2
	case score >= 3:
		return -0.1
	default:
		return 0
	}
}
