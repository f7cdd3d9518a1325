package calculator

// Blend computes the effective price per unit from the day/night split of
// the aggregate usage. With no recorded usage the day share is exactly 0.5.
func Blend(dayUsage, nightUsage, dayRate, nightRate float64) (price, dayShare float64) {
	dayShare = 0.5
	if total := dayUsage + nightUsage; total > 0 {
		dayShare = dayUsage / total
	}
	price = dayShare*dayRate + (1-dayShare)*nightRate
	return price, dayShare
}
