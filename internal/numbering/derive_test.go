package numbering

import (
	"testing"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDisplayNumber(t *testing.T) {
	l := Lengths{TableID: 2, BranchNum: 2}
	tests := []struct {
		name   string
		loc    string
		format models.NumberFormatType
		picks  []models.CustomPick
		lens   Lengths
		want   string
	}{
		{
			name:   "standard returns identifier unchanged",
			loc:    "010203",
			format: models.NumberFormatStandard,
			lens:   Lengths{TableID: 4, BranchNum: 2},
			want:   "010203",
		},
		{
			name:   "custom picks first char of each segment",
			loc:    "0105",
			format: models.NumberFormatCustom,
			picks: []models.CustomPick{
				{SelectIDType: models.SegmentTableID, StartIndex: 0},
				{SelectIDType: models.SegmentBranchNum, StartIndex: 0},
			},
			lens: l,
			want: "00",
		},
		{
			name:   "custom picks preserve order",
			loc:    "0105",
			format: models.NumberFormatCustom,
			picks: []models.CustomPick{
				{SelectIDType: models.SegmentBranchNum, StartIndex: 1},
				{SelectIDType: models.SegmentTableID, StartIndex: 1},
			},
			lens: l,
			want: "51",
		},
		{
			name:   "out of range picks are skipped",
			loc:    "0105",
			format: models.NumberFormatCustom,
			picks: []models.CustomPick{
				{SelectIDType: models.SegmentTableID, StartIndex: 5},
				{SelectIDType: models.SegmentBranchNum, StartIndex: -1},
				{SelectIDType: models.SegmentBranchNum, StartIndex: 1},
			},
			lens: l,
			want: "5",
		},
		{
			name:   "custom without picks falls back to identifier",
			loc:    "0105",
			format: models.NumberFormatCustom,
			lens:   l,
			want:   "0105",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveDisplayNumber(tt.loc, tt.format, tt.picks, tt.lens))
		})
	}
}

func TestDeriveDisplayNumber_CapsLength(t *testing.T) {
	picks := make([]models.CustomPick, 0, 20)
	for i := 0; i < 20; i++ {
		picks = append(picks, models.CustomPick{SelectIDType: models.SegmentTableID, StartIndex: i % 4})
	}
	got := DeriveDisplayNumber("12345678", models.NumberFormatCustom, picks, Lengths{TableID: 4, BranchNum: 4})
	assert.Len(t, got, MaxCustomLength)
	assert.Equal(t, "1234123412", got)
}

func TestSplitAndCompose(t *testing.T) {
	l := Lengths{TableID: 3, BranchNum: 2}

	assert.Equal(t, "00702", ComposeLocationNum("7", "2", l))
	table, branch := Split("00702", l)
	assert.Equal(t, "007", table)
	assert.Equal(t, "02", branch)
	assert.Equal(t, "02", BranchSuffix("00702", l))

	table, branch = Split("0", l)
	assert.Equal(t, "0", table)
	assert.Equal(t, "", branch)

	assert.Equal(t, "12345", PadLeft("12345", 3))
}

func TestRederiveLayout(t *testing.T) {
	layout := models.NewLayoutData("l1", "1F", models.LayoutPreferences{})
	layout.Maps = []models.ShapeEntry{
		{ID: "a", Config: models.ShapeConfig{UUID: "a", Shape: models.ShapeGondola, TableID: "1", BranchNum: "3"}},
		{ID: "b", Config: models.ShapeConfig{UUID: "b", Shape: models.ShapeRect}},
	}

	prefs := models.MapPreferences{TableIDLength: 2, BranchNumLength: 2, NumberFormat: models.NumberFormatStandard}
	assert.Equal(t, 1, RederiveLayout(layout, prefs))
	assert.Equal(t, "0103", layout.Maps[0].Config.LocationNum)
	assert.Equal(t, "0103", layout.Maps[0].Config.DisplayLocationNum)

	// Same preferences again: nothing to do.
	assert.Equal(t, 0, RederiveLayout(layout, prefs))

	prefs.NumberFormat = models.NumberFormatCustom
	prefs.CustomFormat = []models.CustomPick{{SelectIDType: models.SegmentBranchNum, StartIndex: 1}}
	assert.Equal(t, 1, RederiveLayout(layout, prefs))
	assert.Equal(t, "0103", layout.Maps[0].Config.LocationNum)
	assert.Equal(t, "3", layout.Maps[0].Config.DisplayLocationNum)
}

func TestRederive_ShrinksPadding(t *testing.T) {
	cfg := models.ShapeConfig{Shape: models.ShapeGondola, TableID: "001", BranchNum: "01", LocationNum: "00101"}
	prefs := models.MapPreferences{
		TableIDLength:   2,
		BranchNumLength: 2,
		NumberFormat:    models.NumberFormatCustom,
		CustomFormat:    []models.CustomPick{{SelectIDType: models.SegmentBranchNum, StartIndex: 1}},
	}

	require.True(t, Rederive(&cfg, prefs))
	assert.Equal(t, "01", cfg.TableID)
	assert.Equal(t, "01", cfg.BranchNum)
	assert.Equal(t, "0101", cfg.LocationNum)
	assert.Equal(t, "1", cfg.DisplayLocationNum)

	// Growing again pads the refitted segments.
	prefs.TableIDLength = 3
	require.True(t, Rederive(&cfg, prefs))
	assert.Equal(t, "001", cfg.TableID)
	assert.Equal(t, "00101", cfg.LocationNum)
	assert.False(t, Rederive(&cfg, prefs))
}

func TestRefit(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"001", 2, "01"},
		{"1", 3, "001"},
		{"000", 2, "00"},
		{"123", 2, "123"},
		{"007", 0, "007"},
		{"", 2, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Refit(tt.in, tt.width), "%q@%d", tt.in, tt.width)
	}
}

func TestCounters(t *testing.T) {
	layout := &models.LayoutData{}
	l := Lengths{TableID: 3, BranchNum: 2}

	assert.Equal(t, "001", NextTableID(layout, l))
	assert.Equal(t, "002", NextTableID(layout, l))
	assert.Equal(t, "1", NextAreaID(layout))

	assert.Equal(t, "01", NextBranchNum(layout, models.PlacementWall, "001", l))
	assert.Equal(t, "02", NextBranchNum(layout, models.PlacementWall, "001", l))
	assert.Equal(t, "01", NextBranchNum(layout, models.PlacementIsland, "001", l))
	assert.Equal(t, "01", NextBranchNum(layout, models.PlacementWall, "002", l))
}
