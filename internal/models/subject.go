package models

import "fmt"

const (
	StoreSubjectsPath = "subjects"

	SemesterCount = 8
)

// Semester is one of the fixed academic terms. Semesters are never stored on their own.
type Semester struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subject is a course within a semester. Key is unique within its semester and never changes.
type Subject struct {
	Key  string `json:"key" mapstructure:"key"`
	Name string `json:"name" mapstructure:"name"`
	Code string `json:"code,omitempty" mapstructure:"code"`
}

// AddSubjectRequest is the parameter struct to the AddSubject function.
type AddSubjectRequest struct {
	Semester string `json:"semester,omitempty"`
	Key      string `json:"key" validate:"required,max=64"`
	Name     string `json:"name" validate:"required,max=128"`
	Code     string `json:"code" validate:"max=32"`
	// Will be set from context
	AddedBy *Session `json:"-"`
}

// UpdateSubjectRequest is the parameter struct to the UpdateSubject function.
type UpdateSubjectRequest struct {
	Semester string   `json:"semester,omitempty"`
	Key      string   `json:"key,omitempty"`
	Name     string   `json:"name" validate:"required,max=128"`
	Code     *string  `json:"code,omitempty" validate:"omitempty,max=32"`
	EditedBy *Session `json:"-"`
}

// DeleteSubjectRequest is the parameter struct to the DeleteSubject function.
type DeleteSubjectRequest struct {
	Semester  string   `json:"semester"`
	Key       string   `json:"key"`
	DeletedBy *Session `json:"-"`
}

// SemesterID returns the ID of the n-th semester (1-based).
func SemesterID(n int) string {
	return fmt.Sprintf("s%d", n)
}

// Semesters returns s1..s8 in order.
func Semesters() []Semester {
	semesters := make([]Semester, 0, SemesterCount)
	for n := 1; n <= SemesterCount; n++ {
		semesters = append(semesters, Semester{
			ID:   SemesterID(n),
			Name: fmt.Sprintf("Semester %d", n),
		})
	}
	return semesters
}

// IsValidSemester reports whether id is one of s1..s8.
func IsValidSemester(id string) bool {
	for n := 1; n <= SemesterCount; n++ {
		if id == SemesterID(n) {
			return true
		}
	}
	return false
}
