package models

// NumberFormatType selects how location numbers are displayed.
type NumberFormatType string

const (
	NumberFormatStandard NumberFormatType = "STANDARD"
	NumberFormatCustom   NumberFormatType = "CUSTOM"
)

// SegmentType names the part of a location number a custom pick reads from.
type SegmentType string

const (
	SegmentTableID   SegmentType = "TABLE_ID"
	SegmentBranchNum SegmentType = "BRANCH_NUM"
)

// CustomPick selects one character of a location-number segment.
type CustomPick struct {
	SelectIDType SegmentType `json:"selectIdType"`
	StartIndex   int         `json:"startIndex"`
}

// MapPreferences are shared by every floor of a map.
type MapPreferences struct {
	TableIDLength   int              `json:"tableIdLength"`
	BranchNumLength int              `json:"branchNumLength"`
	NumberFormat    NumberFormatType `json:"numberFormat"`
	CustomFormat    []CustomPick     `json:"customFormat,omitempty"`
	DefaultFontSize float64          `json:"defaultFontSize"`
}

// SaveData is the persisted map record. Layouts is the canonical tab order
// and holds metadata only; shapes live under each floor's own key.
type SaveData struct {
	MapID         string         `json:"mapId"`
	Version       string         `json:"version"`
	Layouts       []Layout       `json:"layouts"`
	Note          string         `json:"note,omitempty"`
	Preferences   MapPreferences `json:"preferences"`
	EditorVersion string         `json:"editorVersion"`
}

// LayoutIndex returns the tab position of a floor, or -1.
func (s *SaveData) LayoutIndex(layoutID string) int {
	for i, l := range s.Layouts {
		if l.LayoutID == layoutID {
			return i
		}
	}
	return -1
}
