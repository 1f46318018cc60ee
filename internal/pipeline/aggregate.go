package pipeline

// aggregate merges region results into one MultiDrugResult. Two regions
// resolving to the same drug collapse into one detection: the higher
// confidence region is kept and the duplicates recorded for audit.
// Aggregate confidence is the mean over the kept detections.
func aggregate(results []RegionResult) *MultiDrugResult {
	res := &MultiDrugResult{Regions: results, Drugs: []DrugDetection{}}

	byDrug := make(map[string]int)
	for _, r := range results {
		if r.Best == nil {
			continue
		}
		id := r.Best.Entry.ID
		if idx, seen := byDrug[id]; seen {
			kept := &res.Drugs[idx]
			if r.Best.Confidence > kept.Confidence {
				kept.Duplicates = append(kept.Duplicates, kept.RegionID)
				kept.Confidence = r.Best.Confidence
				kept.RegionID = r.RegionID
				kept.Action = r.Action
			} else {
				kept.Duplicates = append(kept.Duplicates, r.RegionID)
			}
			continue
		}
		byDrug[id] = len(res.Drugs)
		res.Drugs = append(res.Drugs, DrugDetection{
			DrugID:     id,
			Name:       r.Best.Entry.Name,
			Confidence: r.Best.Confidence,
			RegionID:   r.RegionID,
			Action:     r.Action,
		})
	}

	if len(res.Drugs) > 0 {
		var sum float64
		for _, d := range res.Drugs {
			sum += d.Confidence
		}
		res.AggregateConfidence = sum / float64(len(res.Drugs))
	}
	return res
}
