package school

import (
	"github.com/shopspring/decimal"

	"github.com/NVK2907/sms-app-sub000/core/session"
)

// AttendanceStatus values
const (
	Present = "PRESENT"
	Absent  = "ABSENT"
	Late    = "LATE"
	Excused = "EXCUSED"
)

type (
	User struct {
		ID       int64                    `json:"id,omitempty"`
		Username string                   `json:"username" validate:"required,min=3,alphanum_"`
		Password string                   `json:"password,omitempty" validate:"omitempty,min=6"`
		FullName string                   `json:"fullName" validate:"required"`
		Email    string                   `json:"email" validate:"omitempty,email"`
		IsActive bool                     `json:"isActive"`
		Roles    []session.RoleDescriptor `json:"roles,omitempty"`
	}

	Student struct {
		ID             int64  `json:"id,omitempty"`
		StudentID      string `json:"studentId" validate:"required"`
		FirstName      string `json:"firstName" validate:"required"`
		LastName       string `json:"lastName" validate:"required"`
		Email          string `json:"email" validate:"omitempty,email"`
		Phone          string `json:"phone,omitempty"`
		DateOfBirth    string `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
		ClassID        *int64 `json:"classId,omitempty"`
		ClassName      string `json:"className,omitempty"`
		CourseYear     int    `json:"courseYear,omitempty" validate:"omitempty,min=1,max=6"`
		EnrollmentDate string `json:"enrollmentDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	}

	Teacher struct {
		ID             int64  `json:"id,omitempty"`
		TeacherID      string `json:"teacherId" validate:"required"`
		FirstName      string `json:"firstName" validate:"required"`
		LastName       string `json:"lastName" validate:"required"`
		Email          string `json:"email" validate:"omitempty,email"`
		Phone          string `json:"phone,omitempty"`
		Department     string `json:"department,omitempty"`
		Specialization string `json:"specialization,omitempty"`
		HireDate       string `json:"hireDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	}

	Subject struct {
		ID          int64  `json:"id,omitempty"`
		SubjectCode string `json:"subjectCode" validate:"required"`
		SubjectName string `json:"subjectName" validate:"required"`
		Description string `json:"description,omitempty"`
		Credits     int    `json:"credits" validate:"min=0,max=30"`
	}

	Class struct {
		ID             int64  `json:"id,omitempty"`
		ClassCode      string `json:"classCode" validate:"required"`
		ClassName      string `json:"className" validate:"required"`
		CourseYear     int    `json:"courseYear,omitempty" validate:"omitempty,min=1,max=6"`
		Capacity       int    `json:"capacity,omitempty" validate:"omitempty,min=1"`
		TeacherID      *int64 `json:"teacherId,omitempty"`
		SubjectID      *int64 `json:"subjectId,omitempty"`
		SemesterID     *int64 `json:"semesterId,omitempty"`
		AcademicYearID *int64 `json:"academicYearId,omitempty"`
	}

	Semester struct {
		ID             int64  `json:"id,omitempty"`
		Name           string `json:"name" validate:"required"`
		StartDate      string `json:"startDate" validate:"required,datetime=2006-01-02"`
		EndDate        string `json:"endDate" validate:"required,datetime=2006-01-02"`
		AcademicYearID *int64 `json:"academicYearId,omitempty"`
		IsActive       bool   `json:"isActive"`
	}

	AcademicYear struct {
		ID        int64  `json:"id,omitempty"`
		YearName  string `json:"yearName" validate:"required"`
		StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
		EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
		IsActive  bool   `json:"isActive"`
	}

	Grade struct {
		ID          int64           `json:"id,omitempty"`
		StudentID   int64           `json:"studentId" validate:"required"`
		SubjectID   int64           `json:"subjectId" validate:"required"`
		ClassID     *int64          `json:"classId,omitempty"`
		SemesterID  *int64          `json:"semesterId,omitempty"`
		Score       decimal.Decimal `json:"score"`
		GradeLetter string          `json:"gradeLetter,omitempty"`
		Remarks     string          `json:"remarks,omitempty"`
	}

	AttendanceEntry struct {
		ID        int64  `json:"id,omitempty"`
		StudentID int64  `json:"studentId" validate:"required"`
		ClassID   int64  `json:"classId" validate:"required"`
		Date      string `json:"date" validate:"required,datetime=2006-01-02"`
		Status    string `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EXCUSED"`
		Remarks   string `json:"remarks,omitempty"`
	}
)

var maxScore = decimal.NewFromInt(100)

func init() {
	// the backend reads scores as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// ValidateScore checks the score bounds, which the validator tags cannot express on decimals.
func (g Grade) ValidateScore() bool {
	return !g.Score.IsNegative() && g.Score.LessThanOrEqual(maxScore)
}

// Letter is the letter grade of a score out of 100.
func Letter(score decimal.Decimal) string {
	switch {
	case score.GreaterThanOrEqual(decimal.NewFromInt(90)):
		return "A"
	case score.GreaterThanOrEqual(decimal.NewFromInt(80)):
		return "B"
	case score.GreaterThanOrEqual(decimal.NewFromInt(70)):
		return "C"
	case score.GreaterThanOrEqual(decimal.NewFromInt(60)):
		return "D"
	default:
		return "F"
	}
}
