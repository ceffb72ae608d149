package numbering

import (
	"strconv"

	"github.com/floorplan-editor/backend/internal/models"
)

// NextTableID bumps the floor's table counter and returns the padded id.
func NextTableID(layout *models.LayoutData, l Lengths) string {
	layout.LatestTableID++
	return PadLeft(strconv.Itoa(layout.LatestTableID), l.TableID)
}

// NextAreaID bumps the floor's area counter and returns the new id.
func NextAreaID(layout *models.LayoutData) string {
	layout.LatestAreaID++
	return strconv.Itoa(layout.LatestAreaID)
}

// NextBranchNum bumps the branch counter of tableID. Wall and island
// fixtures keep separate counters.
func NextBranchNum(layout *models.LayoutData, placement models.Placement, tableID string, l Lengths) string {
	counters := layout.LatestWallBranchNums
	if placement == models.PlacementIsland {
		counters = layout.LatestIslandBranchNums
	}
	if counters == nil {
		counters = make(map[string]int)
		if placement == models.PlacementIsland {
			layout.LatestIslandBranchNums = counters
		} else {
			layout.LatestWallBranchNums = counters
		}
	}
	counters[tableID]++
	return PadLeft(strconv.Itoa(counters[tableID]), l.BranchNum)
}
