package school

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVK2907/sms-app-sub000/core"
)

func TestValidate(t *testing.T) {
	classID := int64(3)
	tests := []struct {
		name       string
		rec        interface{}
		wantFields []string
	}{
		{name: "valid user", rec: User{Username: "jane_doe", FullName: "Jane Doe", Email: "jane@school.test"}},
		{name: "user bad username", rec: User{Username: "j d!", FullName: "Jane"}, wantFields: []string{"username"}},
		{name: "user short password", rec: User{Username: "jane", FullName: "Jane", Password: "123"}, wantFields: []string{"password"}},
		{name: "student missing names", rec: Student{StudentID: "S-001"}, wantFields: []string{"firstName", "lastName"}},
		{name: "student bad date", rec: Student{StudentID: "S-001", FirstName: "A", LastName: "B", DateOfBirth: "01/02/2010"}, wantFields: []string{"dateOfBirth"}},
		{name: "valid class", rec: Class{ClassCode: "CS-1", ClassName: "Computer Science 1", CourseYear: 1, TeacherID: &classID}},
		{name: "semester dates required", rec: Semester{Name: "Fall"}, wantFields: []string{"startDate", "endDate"}},
		{name: "attendance status", rec: AttendanceEntry{StudentID: 1, ClassID: 2, Date: "2024-09-02", Status: "present"}, wantFields: []string{"status"}},
		{name: "valid grade", rec: Grade{StudentID: 1, SubjectID: 2, Score: decimal.RequireFromString("87.5")}},
		{name: "grade out of range", rec: &Grade{StudentID: 1, SubjectID: 2, Score: decimal.NewFromInt(101)}, wantFields: []string{"score"}},
		{name: "negative grade", rec: Grade{StudentID: 1, SubjectID: 2, Score: decimal.NewFromInt(-1)}, wantFields: []string{"score"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.rec)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			var fields []string
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestLetter(t *testing.T) {
	tests := map[string]string{"95": "A", "90": "A", "89.99": "B", "70": "C", "60.5": "D", "12": "F"}
	for score, want := range tests {
		assert.Equal(t, want, Letter(decimal.RequireFromString(score)), score)
	}
}

func TestComplete(t *testing.T) {
	g := Grade{StudentID: 1, SubjectID: 2, Score: decimal.RequireFromString("85.5")}
	Complete(&g)
	assert.Equal(t, "B", g.GradeLetter)

	g = Grade{Score: decimal.NewFromInt(95), GradeLetter: "A+"}
	Complete(&g)
	assert.Equal(t, "A+", g.GradeLetter, "an entered letter is kept")

	st := Student{FirstName: "Ann"}
	Complete(&st)
	assert.Equal(t, Student{FirstName: "Ann"}, st)
}

func TestGrade_JSON(t *testing.T) {
	b, err := json.Marshal(Grade{StudentID: 1, SubjectID: 2, Score: decimal.RequireFromString("85.5")})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"score":85.5`)

	var g Grade
	require.NoError(t, json.Unmarshal(b, &g))
	assert.True(t, decimal.RequireFromString("85.5").Equal(g.Score))

	// quoted scores from older backends still decode
	require.NoError(t, json.Unmarshal([]byte(`{"studentId":1,"subjectId":2,"score":"72"}`), &g))
	assert.Equal(t, "C", Letter(g.Score))
}

func TestResources(t *testing.T) {
	assert.Equal(t, "academicYears", Resources["academic-years"].CollectionKey)
	assert.Equal(t, []string{"academic-years", "attendance", "classes", "grades", "semesters", "students", "subjects", "teachers", "users"}, ResourceNames())
	for name, r := range Resources {
		assert.Equal(t, name, r.Name)
		assert.Equal(t, "/"+name, r.Path)
	}
	assert.Equal(t, "Academic year created successfully", CreatedMsg(Resources["academic-years"]))
	assert.Equal(t, "Failed to delete user", DeleteFailedMsg(Resources["users"]))
}
