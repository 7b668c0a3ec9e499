package models

// gradeBand maps a half-open percentage interval [Floor, next band's
// floor) to a letter grade. Bands are ordered highest floor first and the
// last band floors at 0, so every percentage in [0,100] maps to exactly
// one grade.
type gradeBand struct {
	Floor float64
	Grade string
}

var gradeBands = []gradeBand{
	{Floor: 90, Grade: "A+"},
	{Floor: 80, Grade: "A"},
	{Floor: 70, Grade: "B+"},
	{Floor: 60, Grade: "B"},
	{Floor: 50, Grade: "C"},
	{Floor: 40, Grade: "D"},
	{Floor: 0, Grade: "F"},
}

// GradeForPercentage returns the letter grade for an overall percentage.
// Out-of-range inputs are clamped so the mapping stays total.
func GradeForPercentage(percentage float64) string {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	for _, band := range gradeBands {
		if percentage >= band.Floor {
			return band.Grade
		}
	}

	return gradeBands[len(gradeBands)-1].Grade
}
