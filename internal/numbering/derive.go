// Package numbering derives display strings for location numbers.
//
// A location number is the zero-padded table id followed by the zero-padded
// branch number. Display format is either the raw identifier (standard) or a
// user-defined sequence of single characters picked from either segment.
package numbering

import (
	"strings"

	"github.com/floorplan-editor/backend/internal/models"
)

// MaxCustomLength caps the output of a custom display format.
const MaxCustomLength = 10

// Lengths are the digit widths of the two segments.
type Lengths struct {
	TableID   int
	BranchNum int
}

// LengthsOf extracts the segment widths from map preferences.
func LengthsOf(p models.MapPreferences) Lengths {
	return Lengths{TableID: p.TableIDLength, BranchNum: p.BranchNumLength}
}

// DeriveDisplayNumber renders locationNum under the given format. Standard
// mode returns the identifier unchanged. Custom mode concatenates the picked
// characters in order, skipping picks outside their segment.
func DeriveDisplayNumber(locationNum string, format models.NumberFormatType, custom []models.CustomPick, l Lengths) string {
	if format != models.NumberFormatCustom || len(custom) == 0 {
		return locationNum
	}

	tableSeg, branchSeg := Split(locationNum, l)

	var b strings.Builder
	for _, pick := range custom {
		if b.Len() >= MaxCustomLength {
			break
		}
		var seg string
		switch pick.SelectIDType {
		case models.SegmentTableID:
			seg = tableSeg
		case models.SegmentBranchNum:
			seg = branchSeg
		default:
			continue
		}
		if pick.StartIndex < 0 || pick.StartIndex >= len(seg) {
			continue
		}
		b.WriteByte(seg[pick.StartIndex])
	}
	return b.String()
}

// Split cuts a location number into its table-id and branch segments.
// Short input yields short (possibly empty) segments.
func Split(locationNum string, l Lengths) (tableID, branchNum string) {
	t := l.TableID
	if t < 0 {
		t = 0
	}
	if t > len(locationNum) {
		return locationNum, ""
	}
	rest := locationNum[t:]
	bl := l.BranchNum
	if bl <= 0 || bl > len(rest) {
		return locationNum[:t], rest
	}
	return locationNum[:t], rest[:bl]
}

// BranchSuffix returns only the branch segment of a location number.
func BranchSuffix(locationNum string, l Lengths) string {
	_, b := Split(locationNum, l)
	return b
}

// ComposeLocationNum refits both segments to their widths and concatenates them.
func ComposeLocationNum(tableID, branchNum string, l Lengths) string {
	return Refit(tableID, l.TableID) + Refit(branchNum, l.BranchNum)
}

// Refit re-pads a zero-padded segment to width, so "001" becomes "01" at
// width 2 and "1" becomes "001" at width 3. Significant digits are never cut.
func Refit(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	v := strings.TrimLeft(s, "0")
	if v == "" {
		v = "0"
	}
	return PadLeft(v, width)
}

// PadLeft left-pads s with zeros up to width. Longer input is kept as is.
func PadLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
