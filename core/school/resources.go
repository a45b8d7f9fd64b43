package school

import (
	"sort"

	"github.com/NVK2907/sms-app-sub000/core"
	"github.com/NVK2907/sms-app-sub000/core/session"
)

// Resource describes a backend collection.
type Resource struct {
	Name          string // eg. "academic-years"
	Path          string // endpoint, relative to the API base URL
	CollectionKey string // key holding the records in a page envelope
	Label         string // singular, for notifications
}

// Noun is the lower-cased label, eg. "academic year".
func (r Resource) Noun() string { return core.CleanString(r.Label, true) }

var Resources = map[string]Resource{
	"users":          {Name: "users", Path: "/users", CollectionKey: "users", Label: "User"},
	"students":       {Name: "students", Path: "/students", CollectionKey: "students", Label: "Student"},
	"teachers":       {Name: "teachers", Path: "/teachers", CollectionKey: "teachers", Label: "Teacher"},
	"subjects":       {Name: "subjects", Path: "/subjects", CollectionKey: "subjects", Label: "Subject"},
	"classes":        {Name: "classes", Path: "/classes", CollectionKey: "classes", Label: "Class"},
	"semesters":      {Name: "semesters", Path: "/semesters", CollectionKey: "semesters", Label: "Semester"},
	"academic-years": {Name: "academic-years", Path: "/academic-years", CollectionKey: "academicYears", Label: "Academic year"},
	"grades":         {Name: "grades", Path: "/grades", CollectionKey: "grades", Label: "Grade"},
	"attendance":     {Name: "attendance", Path: "/attendance", CollectionKey: "attendance", Label: "Attendance record"},
}

// RoleResources lists the resources each role manages, in menu order.
var RoleResources = map[session.Role][]string{
	session.RoleAdmin:   {"users", "students", "teachers", "subjects", "classes", "semesters", "academic-years"},
	session.RoleTeacher: {"grades", "attendance", "classes"},
	session.RoleStudent: {"grades", "attendance"},
}

// ResourceNames returns the known resource names, sorted.
func ResourceNames() []string {
	names := make([]string, 0, len(Resources))
	for name := range Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate runs the form validation of a record before it is sent.
func Validate(rec interface{}) error {
	if err := core.ValidateStruct(rec); err != nil {
		return err
	}
	var g *Grade
	switch r := rec.(type) {
	case Grade:
		g = &r
	case *Grade:
		g = r
	}
	if g != nil && !g.ValidateScore() {
		return core.NewValidationError(nil, core.FieldError{Field: "score", Error: "score must be between 0 and 100"})
	}
	return nil
}

// Complete fills the fields derived from others, such as the letter of a grade entered
// with a score only. rec must be a pointer to be completed.
func Complete(rec interface{}) {
	if g, ok := rec.(*Grade); ok && g.GradeLetter == "" {
		g.GradeLetter = Letter(g.Score)
	}
}

// Notification texts
func CreatedMsg(r Resource) string      { return r.Label + " created successfully" }
func UpdatedMsg(r Resource) string      { return r.Label + " updated successfully" }
func DeletedMsg(r Resource) string      { return r.Label + " deleted successfully" }
func CreateFailedMsg(r Resource) string { return "Failed to create " + r.Noun() }
func UpdateFailedMsg(r Resource) string { return "Failed to update " + r.Noun() }
func DeleteFailedMsg(r Resource) string { return "Failed to delete " + r.Noun() }
