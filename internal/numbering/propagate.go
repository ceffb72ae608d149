package numbering

import (
	"github.com/floorplan-editor/backend/internal/models"
)

// Rederive refits the table and branch segments to the current lengths and
// recomputes locationNum and displayLocationNum for a single config.
// It reports whether anything changed. Configs without a table id are left alone.
func Rederive(cfg *models.ShapeConfig, prefs models.MapPreferences) bool {
	if cfg.TableID == "" {
		return false
	}
	l := LengthsOf(prefs)
	table := Refit(cfg.TableID, l.TableID)
	branch := Refit(cfg.BranchNum, l.BranchNum)
	loc := table + branch
	disp := DeriveDisplayNumber(loc, prefs.NumberFormat, prefs.CustomFormat, l)
	if table == cfg.TableID && branch == cfg.BranchNum &&
		loc == cfg.LocationNum && disp == cfg.DisplayLocationNum {
		return false
	}
	cfg.TableID, cfg.BranchNum = table, branch
	cfg.LocationNum = loc
	cfg.DisplayLocationNum = disp
	return true
}

// RederiveEntries applies Rederive to every entry in place and returns the
// number of entries that changed.
func RederiveEntries(entries []models.ShapeEntry, prefs models.MapPreferences) int {
	changed := 0
	for i := range entries {
		if Rederive(&entries[i].Config, prefs) {
			changed++
		}
	}
	return changed
}

// RederiveLayout re-derives both shape lists of a persisted floor.
func RederiveLayout(layout *models.LayoutData, prefs models.MapPreferences) int {
	return RederiveEntries(layout.Maps, prefs) + RederiveEntries(layout.Areas, prefs)
}
