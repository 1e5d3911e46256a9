package journal

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mzalendo/daftari/core"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without a time component. It marshals as "2006-01-02".
type Date struct {
	time.Time
}

func Today() Date {
	return NewDate(time.Now().UTC())
}

func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) { return d.Time, nil }

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

type (
	Faculty struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	Group struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		FacultyID string    `json:"faculty_id"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	Subject struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description,omitempty"`
		FacultyID   string    `json:"faculty_id"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at"` // UTC
	}

	// SubjectGroup links a Subject to a Group it is taught in.
	SubjectGroup struct {
		ID        string    `json:"id"`
		SubjectID string    `json:"subject_id"`
		GroupID   string    `json:"group_id"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	Grade struct {
		ID             string    `json:"id"`
		StudentID      string    `json:"student_id"`
		SubjectGroupID string    `json:"subject_group_id"`
		Grade          int       `json:"grade"`
		Date           Date      `json:"date"`
		Description    string    `json:"description,omitempty"`
		CreatedAt      time.Time `json:"created_at"` // UTC
		UpdatedAt      time.Time `json:"updated_at"` // UTC
	}

	Attendance struct {
		ID             string    `json:"id"`
		StudentID      string    `json:"student_id"`
		SubjectGroupID string    `json:"subject_group_id"`
		Date           Date      `json:"date"`
		IsPresent      bool      `json:"is_present"`
		CreatedAt      time.Time `json:"created_at"` // UTC
		UpdatedAt      time.Time `json:"updated_at"` // UTC
	}

	// TeacherSubject is one teacher-to-subject assignment.
	TeacherSubject struct {
		TeacherID string `json:"teacher_id"`
		SubjectID string `json:"subject_id"`
	}
)

// NewFaculty contains information needed to create a new Faculty.
type NewFaculty struct {
	Name string `json:"name" validate:"required"`
}

func (nf *NewFaculty) Validate(validate *validator.Validate) error {
	nf.Name = core.CleanString(nf.Name)
	return validate.Struct(nf)
}

type NewGroup struct {
	Name      string `json:"name" validate:"required"`
	FacultyID string `json:"faculty_id" validate:"required,uuid4"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

type NewSubject struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	FacultyID   string `json:"faculty_id" validate:"required,uuid4"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}

type NewSubjectGroup struct {
	SubjectID string `json:"subject_id" validate:"required,uuid4"`
	GroupID   string `json:"group_id" validate:"required,uuid4"`
}

func (nsg *NewSubjectGroup) Validate(validate *validator.Validate) error {
	return validate.Struct(nsg)
}

type NewGrade struct {
	StudentID      string `json:"student_id" validate:"required,uuid4"`
	SubjectGroupID string `json:"subject_group_id" validate:"required,uuid4"`
	Grade          int    `json:"grade" validate:"min=0"`
	Date           Date   `json:"date" validate:"required"`
	Description    string `json:"description"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Description = core.CleanString(ng.Description)
	return validate.Struct(ng)
}

// UpdateGrade defines what information may be provided to modify an existing Grade.
// All fields are optional; omitted ones are left untouched.
type UpdateGrade struct {
	Grade       *int    `json:"grade" validate:"omitempty,min=0"`
	Date        *Date   `json:"date"`
	Description *string `json:"description"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	if ug.Description != nil {
		desc := core.CleanString(*ug.Description)
		ug.Description = &desc
	}
	return validate.Struct(ug)
}

type NewAttendance struct {
	StudentID      string `json:"student_id" validate:"required,uuid4"`
	SubjectGroupID string `json:"subject_group_id" validate:"required,uuid4"`
	Date           Date   `json:"date" validate:"required"`
	IsPresent      *bool  `json:"is_present" validate:"required"`
}

func (na *NewAttendance) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

type UpdateAttendance struct {
	IsPresent *bool `json:"is_present"`
	Date      *Date `json:"date"`
}

func (ua *UpdateAttendance) Validate(validate *validator.Validate) error {
	return validate.Struct(ua)
}

type (
	GroupFilter struct {
		FacultyID string `query:"faculty_id"`
	}

	SubjectFilter struct {
		FacultyID string `query:"faculty_id"`
	}

	SubjectGroupFilter struct {
		SubjectID string `query:"subject_id"`
		GroupID   string `query:"group_id"`
	}

	GradeFilter struct {
		StudentID      string `query:"student_id"`
		SubjectGroupID string `query:"subject_group_id"`
	}

	AttendanceFilter struct {
		StudentID      string `query:"student_id"`
		SubjectGroupID string `query:"subject_group_id"`
	}
)
