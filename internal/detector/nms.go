package detector

import (
	"sort"

	"github.com/veridose/boxscan/internal/utils"
)

// proposal is an intermediate detection before region construction.
type proposal struct {
	box        utils.Box
	confidence float64
}

// nonMaxSuppression merges overlapping proposals above the IoU threshold,
// keeping the highest-confidence box and discarding the rest.
func nonMaxSuppression(props []proposal, iouThreshold float64) []proposal {
	if len(props) <= 1 {
		return props
	}

	sort.Slice(props, func(i, j int) bool {
		return props[i].confidence > props[j].confidence
	})

	suppressed := make([]bool, len(props))
	kept := make([]proposal, 0, len(props))

	for a := range props {
		if suppressed[a] {
			continue
		}
		kept = append(kept, props[a])
		for b := a + 1; b < len(props); b++ {
			if suppressed[b] {
				continue
			}
			if utils.IoU(props[a].box, props[b].box) > iouThreshold {
				suppressed[b] = true
			}
		}
	}

	return kept
}
