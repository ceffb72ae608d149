package models

// Layout is the tab-order metadata of one floor.
type Layout struct {
	LayoutID   string `json:"layoutId"`
	LayoutName string `json:"layoutName"`
}

// Rect is an axis-aligned region in stage coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LayoutPreferences holds per-floor stage settings.
type LayoutPreferences struct {
	StageWidth   float64 `json:"stageWidth"`
	StageHeight  float64 `json:"stageHeight"`
	LatticeSize  float64 `json:"latticeSize"`
	PrintWidth   float64 `json:"printWidth,omitempty"`
	PrintHeight  float64 `json:"printHeight,omitempty"`
	CaptureRange *Rect   `json:"captureRange,omitempty"`
}

// LayoutData is one persisted floor.
type LayoutData struct {
	LayoutID               string            `json:"layoutId"`
	LayoutName             string            `json:"layoutName"`
	LatestAreaID           int               `json:"latestAreaId"`
	LatestTableID          int               `json:"latestTableId"`
	LatestWallBranchNums   map[string]int    `json:"latestWallBranchNums,omitempty"`
	LatestIslandBranchNums map[string]int    `json:"latestIslandBranchNums,omitempty"`
	Areas                  []ShapeEntry      `json:"areas"`
	Maps                   []ShapeEntry      `json:"maps"`
	Preferences            LayoutPreferences `json:"preferences"`
}

// IsEmpty reports whether the floor holds no shapes.
func (l *LayoutData) IsEmpty() bool {
	return len(l.Areas) == 0 && len(l.Maps) == 0
}

// NewLayoutData creates an empty floor.
func NewLayoutData(id, name string, prefs LayoutPreferences) *LayoutData {
	return &LayoutData{
		LayoutID:               id,
		LayoutName:             name,
		LatestWallBranchNums:   make(map[string]int),
		LatestIslandBranchNums: make(map[string]int),
		Areas:                  make([]ShapeEntry, 0),
		Maps:                   make([]ShapeEntry, 0),
		Preferences:            prefs,
	}
}
