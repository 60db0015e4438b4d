package diet

// DetectGaps returns ideal minus mean intake for every nutrient of the
// balanced sheet. Un-logged days count as zero intake. A nutrient with no
// stored days has a gap of 0.
func DetectGaps(series NutrientSeries, sheet BalancedDietSheet) GapSheet {
	gaps := make(GapSheet, len(sheet))
	for name, ideal := range sheet {
		intake := series[name]
		if len(intake) == 0 {
			gaps[name] = 0
			continue
		}
		gaps[name] = ideal - mean(intake)
	}
	return gaps
}
