package aggregation

import "time"

// CapacitySeconds returns the theoretical occupied-seconds available to spaces
// stalls over [a, b): the wall-clock length minus any excluded-window overlap.
// It is computed in closed form on every call and holds no state.
func (c Calendar) CapacitySeconds(a, b time.Time, spaces int) float64 {
	if spaces <= 0 {
		return 0
	}
	return c.ActiveDuration(a, b).Seconds() * float64(spaces)
}

// CellCapacities returns the capacity of every grid cell.
func (c Calendar) CellCapacities(g Grid, spaces int) []float64 {
	capacities := make([]float64, g.Len())
	for k := range capacities {
		start, end := g.Cell(k)
		capacities[k] = c.CapacitySeconds(start, end, spaces)
	}
	return capacities
}
