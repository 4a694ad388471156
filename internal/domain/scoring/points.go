package scoring

// Points policy constants.
const (
	DecrementStep = 5
	MinimumPoints = 10
)

// Points returns the points awarded for rank in an event worth maxPoints.
// Rank 0 means not ranked and is worth nothing.
func Points(rank, maxPoints int) int {
	if rank == 0 {
		return 0
	}
	return max(maxPoints-(rank-1)*DecrementStep, MinimumPoints)
}
