package analysis

import (
	"sort"

	"labanalyzer/pkg/contracts/domain"
)

// Dataset is an immutable, ordered table of measurement rows for one experiment.
// A nil *Dataset means "nothing loaded"; a Dataset with zero rows is valid.
type Dataset struct {
	rows []domain.Measurement
}

// NewDataset copies rows into a new Dataset
func NewDataset(rows []domain.Measurement) *Dataset {
	cp := make([]domain.Measurement, len(rows))
	copy(cp, rows)
	return &Dataset{rows: cp}
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// IsEmpty reports whether the dataset has no rows
func (d *Dataset) IsEmpty() bool {
	return d.Len() == 0
}

// Rows returns a copy of the rows in load order
func (d *Dataset) Rows() []domain.Measurement {
	if d == nil {
		return nil
	}
	cp := make([]domain.Measurement, len(d.rows))
	copy(cp, d.rows)
	return cp
}

// Each calls fn for every row in load order without copying the table
func (d *Dataset) Each(fn func(i int, row domain.Measurement)) {
	if d == nil {
		return
	}
	for i, row := range d.rows {
		fn(i, row)
	}
}

// Compounds returns the distinct compound names in encounter order
func (d *Dataset) Compounds() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, row := range d.rows {
		if _, ok := seen[row.CompoundName]; ok {
			continue
		}
		seen[row.CompoundName] = struct{}{}
		out = append(out, row.CompoundName)
	}
	return out
}

// Replicates returns the distinct replicate numbers in ascending order
func (d *Dataset) Replicates() []int {
	if d == nil {
		return nil
	}
	seen := make(map[int]struct{})
	for _, row := range d.rows {
		seen[row.ReplicateNumber] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// TimePoints returns the distinct measurement times in ascending order
func (d *Dataset) TimePoints() []float64 {
	if d == nil {
		return nil
	}
	seen := make(map[float64]struct{})
	for _, row := range d.rows {
		seen[row.TimeHours] = struct{}{}
	}
	out := make([]float64, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Float64s(out)
	return out
}

// AtTime returns the rows measured exactly at t, in load order
func (d *Dataset) AtTime(t float64) []domain.Measurement {
	if d == nil {
		return nil
	}
	var out []domain.Measurement
	for _, row := range d.rows {
		if row.TimeHours == t {
			out = append(out, row)
		}
	}
	return out
}

// replicateGroup holds the rows of one (compound, replicate) pair in load order
type replicateGroup struct {
	compound  string
	replicate int
	rows      []domain.Measurement
}

// groupByReplicate groups rows by compound, then by replicate within each
// compound. Both levels keep first-encounter order.
func (d *Dataset) groupByReplicate() []*replicateGroup {
	type key struct {
		compound  string
		replicate int
	}

	var compounds []string
	perCompound := make(map[string][]*replicateGroup)
	index := make(map[key]*replicateGroup)

	for _, row := range d.rows {
		k := key{row.CompoundName, row.ReplicateNumber}
		g, ok := index[k]
		if !ok {
			if _, seen := perCompound[row.CompoundName]; !seen {
				compounds = append(compounds, row.CompoundName)
			}
			g = &replicateGroup{compound: row.CompoundName, replicate: row.ReplicateNumber}
			index[k] = g
			perCompound[row.CompoundName] = append(perCompound[row.CompoundName], g)
		}
		g.rows = append(g.rows, row)
	}

	groups := make([]*replicateGroup, 0, len(index))
	for _, c := range compounds {
		groups = append(groups, perCompound[c]...)
	}
	return groups
}

// firstAt returns the first row of the group measured exactly at t
func (g *replicateGroup) firstAt(t float64) (domain.Measurement, bool) {
	for _, row := range g.rows {
		if row.TimeHours == t {
			return row, true
		}
	}
	return domain.Measurement{}, false
}
