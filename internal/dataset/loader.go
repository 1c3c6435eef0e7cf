package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"thooimai-go/internal/logger"
)

// Locality is one known area with the wards it spans.
type Locality struct {
	Area  string   `json:"area"`
	Wards []string `json:"wards,omitempty"`
}

// LoadLocalities reads the first sheet of an .xlsx gazetteer. Columns are found
// by header: one containing "area" (or "locality") and one containing "ward".
// Rows of the same area are merged.
func LoadLocalities(path string, log *logger.Logger) ([]Locality, error) {
	if log == nil {
		log = logger.Discard()
	}
	log = log.Component("dataset.localities").With("path", path)
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	areaIdx, wardIdx := -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case areaIdx == -1 && (strings.Contains(l, "area") || strings.Contains(l, "locality")):
			areaIdx = i
		case wardIdx == -1 && strings.Contains(l, "ward"):
			wardIdx = i
		}
	}
	if areaIdx == -1 {
		return nil, fmt.Errorf("no area column in header %v", rows[0])
	}

	wardsByArea := map[string]map[string]bool{}
	var order []string
	for _, r := range rows[1:] {
		if areaIdx >= len(r) {
			continue
		}
		area := strings.TrimSpace(r[areaIdx])
		if area == "" {
			continue
		}
		if _, ok := wardsByArea[area]; !ok {
			wardsByArea[area] = map[string]bool{}
			order = append(order, area)
		}
		if wardIdx >= 0 && wardIdx < len(r) {
			if w := normalizeWard(r[wardIdx]); w != "" {
				wardsByArea[area][w] = true
			}
		}
	}

	out := make([]Locality, 0, len(order))
	for _, area := range order {
		loc := Locality{Area: area}
		for w := range wardsByArea[area] {
			loc.Wards = append(loc.Wards, w)
		}
		sort.Strings(loc.Wards)
		out = append(out, loc)
	}
	log.WithField("localities", len(out)).Info("locality gazetteer loaded")
	return out, nil
}

// normalizeWard turns bare numbers into "Ward N".
func normalizeWard(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Trim(s, "0123456789") == "" {
		if n := strings.TrimLeft(s, "0"); n != "" {
			return "Ward " + n
		}
		return ""
	}
	return s
}
