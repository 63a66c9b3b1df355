package battery

// Level maps a cell voltage to a state of charge.
type Level struct {
	Voltage    float32 // Cell voltage (V)
	Percentage int     // State of charge (0-100)
}

// Curve is a discharge table sorted by voltage, highest first.
// The last entry is the floor and must be {0, 0}.
type Curve []Level

// DefaultCurve is the single-cell LiPo discharge table of the tag.
var DefaultCurve = Curve{
	{4.16, 100}, {4.15, 99}, {4.14, 98}, {4.13, 97}, {4.12, 96}, {4.11, 95}, {4.10, 94}, {4.09, 92},
	{4.08, 91}, {4.07, 90}, {4.06, 89}, {4.05, 88}, {4.04, 87}, {4.03, 86}, {4.02, 85}, {4.01, 84},
	{4.00, 83}, {3.99, 82}, {3.98, 81}, {3.97, 80}, {3.96, 79}, {3.95, 78}, {3.94, 77}, {3.93, 76},
	{3.92, 75}, {3.91, 74}, {3.90, 73}, {3.89, 72}, {3.88, 71}, {3.87, 70}, {3.86, 69}, {3.85, 68},
	{3.84, 67}, {3.83, 66}, {3.82, 65}, {3.81, 64}, {3.80, 63}, {3.79, 62}, {3.78, 61}, {3.77, 60},
	{3.76, 59}, {3.75, 58}, {3.74, 57}, {3.73, 56}, {3.72, 55}, {3.71, 54}, {3.70, 53}, {3.69, 52},
	{3.68, 51}, {3.67, 50}, {3.66, 49}, {3.65, 48}, {3.64, 47}, {3.63, 46}, {3.62, 45}, {3.61, 44},
	{3.60, 43}, {3.59, 42}, {3.58, 41}, {3.57, 40}, {3.56, 39}, {3.55, 38}, {3.54, 37}, {3.53, 36},
	{3.52, 35}, {3.51, 34}, {3.50, 33}, {3.49, 32}, {3.48, 31}, {3.47, 30}, {3.46, 29}, {3.45, 28},
	{3.44, 27}, {3.43, 26}, {3.42, 25}, {3.41, 24}, {3.40, 23}, {3.39, 22}, {3.38, 21}, {3.37, 20},
	{3.36, 19}, {3.35, 18}, {3.34, 17}, {3.33, 16}, {3.32, 15}, {3.31, 14}, {3.30, 13}, {3.29, 12},
	{3.28, 11}, {3.27, 10}, {3.26, 9}, {3.25, 8}, {3.24, 7}, {3.23, 6}, {3.22, 5}, {3.21, 4},
	{3.19, 3}, {3.17, 2}, {3.15, 1}, {0.00, 0},
}

// Lookup returns the percentage of the first level, scanning from the highest
// voltage down, whose voltage is at or below v. Ties resolve to the higher
// percentage. Voltages below every non-floor level map to 0.
func (c Curve) Lookup(v float32) int {
	// The floor entry is never matched; falling through yields the same 0.
	for i := 0; i < len(c)-1; i++ {
		if v >= c[i].Voltage {
			return c[i].Percentage
		}
	}
	return 0
}
