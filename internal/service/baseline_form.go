package service

import (
	"strings"
	"sync"

	"github.com/noah-isme/lifegpa-api/internal/models"
)

// Category is the identifier/name pair a baseline step grades.
type Category struct {
	ID   uint
	Name string
}

// FormState tracks per-category grades and descriptions for one step and
// notifies subscribers synchronously after every change.
type FormState struct {
	mu           sync.RWMutex
	grades       map[uint]models.Grade
	descriptions map[uint]string

	observerMu sync.Mutex
	observers  map[int]func()
	nextID     int
}

// NewFormState returns an empty form.
func NewFormState() *FormState {
	return &FormState{
		grades:       make(map[uint]models.Grade),
		descriptions: make(map[uint]string),
		observers:    make(map[int]func()),
	}
}

// SetGrade replaces or inserts the grade for categoryID.
func (f *FormState) SetGrade(categoryID uint, grade models.Grade) error {
	if !grade.Valid() {
		return &ValidationError{Field: "grade", Reason: "grade must be one of " + gradeList()}
	}

	f.mu.Lock()
	previous, exists := f.grades[categoryID]
	f.grades[categoryID] = grade
	f.mu.Unlock()

	if exists && previous == grade {
		return nil
	}

	f.notify()
	return nil
}

// SetDescription replaces or inserts the free text for categoryID.
func (f *FormState) SetDescription(categoryID uint, text string) {
	f.mu.Lock()
	previous, exists := f.descriptions[categoryID]
	f.descriptions[categoryID] = text
	f.mu.Unlock()

	if exists && previous == text {
		return
	}

	f.notify()
}

// Grade returns the selected grade for categoryID, if any.
func (f *FormState) Grade(categoryID uint) (models.Grade, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	grade, ok := f.grades[categoryID]
	return grade, ok
}

// Grades returns a copy of the current selections.
func (f *FormState) Grades() map[uint]models.Grade {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[uint]models.Grade, len(f.grades))
	for id, grade := range f.grades {
		out[id] = grade
	}
	return out
}

// Descriptions returns a copy of the current descriptions.
func (f *FormState) Descriptions() map[uint]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[uint]string, len(f.descriptions))
	for id, text := range f.descriptions {
		out[id] = text
	}
	return out
}

// Reset drops every selection and description.
func (f *FormState) Reset() {
	f.mu.Lock()
	empty := len(f.grades) == 0 && len(f.descriptions) == 0
	f.grades = make(map[uint]models.Grade)
	f.descriptions = make(map[uint]string)
	f.mu.Unlock()

	if !empty {
		f.notify()
	}
}

// Subscribe registers fn to run after every change. The returned func removes it.
func (f *FormState) Subscribe(fn func()) func() {
	f.observerMu.Lock()
	id := f.nextID
	f.nextID++
	f.observers[id] = fn
	f.observerMu.Unlock()

	return func() {
		f.observerMu.Lock()
		delete(f.observers, id)
		f.observerMu.Unlock()
	}
}

func (f *FormState) notify() {
	f.observerMu.Lock()
	observers := make([]func(), 0, len(f.observers))
	for _, fn := range f.observers {
		observers = append(observers, fn)
	}
	f.observerMu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

// SubmissionReady reports whether every category has a grade. An empty
// category list is never ready. Descriptions are ignored.
func SubmissionReady(categories []Category, grades map[uint]models.Grade) bool {
	if len(categories) == 0 {
		return false
	}
	for _, category := range categories {
		if grades[category.ID] == "" {
			return false
		}
	}
	return true
}

// BuildReport produces one entry per category, in category order, with empty
// strings for missing grades or descriptions.
func BuildReport(categories []Category, grades map[uint]models.Grade, descriptions map[uint]string) []models.ReportEntry {
	entries := make([]models.ReportEntry, 0, len(categories))
	for _, category := range categories {
		entries = append(entries, models.ReportEntry{
			CategoryID:  category.ID,
			Grade:       string(grades[category.ID]),
			Description: descriptions[category.ID],
		})
	}
	return entries
}

func gradeList() string {
	names := make([]string, 0, len(models.Grades))
	for _, grade := range models.Grades {
		names = append(names, string(grade))
	}
	return strings.Join(names, ", ")
}
