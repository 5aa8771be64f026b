package models

import "fmt"

// Grade is a baseline letter grade assigned to a life category.
type Grade string

const (
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeAB     Grade = "AB"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeBC     Grade = "BC"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeD      Grade = "D"
	GradeF      Grade = "F"
)

// Grades lists the accepted grades in display order. Downstream GPA
// interpretation depends on these exact values.
var Grades = []Grade{
	GradeA,
	GradeAMinus,
	GradeAB,
	GradeBPlus,
	GradeB,
	GradeBMinus,
	GradeBC,
	GradeCPlus,
	GradeC,
	GradeD,
	GradeF,
}

// Valid reports whether the grade is one of the accepted values.
func (g Grade) Valid() bool {
	for _, candidate := range Grades {
		if g == candidate {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (g Grade) String() string {
	return string(g)
}

// ParseGrade converts raw input into a Grade.
func ParseGrade(raw string) (Grade, error) {
	grade := Grade(raw)
	if !grade.Valid() {
		return "", fmt.Errorf("unsupported grade %q", raw)
	}
	return grade, nil
}
