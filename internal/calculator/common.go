package calculator

// ResolveCommon returns the usage not captured by any sub-meter. The common
// pool is floored at zero; excess is what the floor discarded, i.e. how far
// the sub-meters overshoot the aggregate meter.
func ResolveCommon(aggregateTotal float64, subTotals []float64) (common, excess float64) {
	var metered float64
	for _, t := range subTotals {
		metered += t
	}
	common = aggregateTotal - metered
	if common < 0 {
		return 0, -common
	}
	return common, 0
}
