package journal

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mzalendo/daftari/core"
	"github.com/mzalendo/daftari/core/user"
)

var (
	// errors
	ErrFacultyNotFound      = errors.New("faculty not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrSubjectNotFound      = errors.New("subject not found")
	ErrSubjectGroupNotFound = errors.New("subject-group link not found")
	ErrGradeNotFound        = errors.New("grade not found")
	ErrAttendanceNotFound   = errors.New("attendance record not found")
	ErrStudentNotFound      = errors.New("student not found")
	ErrTeacherNotFound      = errors.New("teacher not found")

	ErrFacultyExists      = errors.New("a faculty with this name already exists")
	ErrGroupExists        = errors.New("a group with this name already exists in this faculty")
	ErrSubjectExists      = errors.New("a subject with this name already exists in this faculty")
	ErrSubjectGroupExists = errors.New("this subject is already linked to this group")
	ErrAttendanceExists   = errors.New("an attendance record for this student on this date already exists")
)

type (
	Repository interface {
		CreateFaculty(ctx context.Context, fac Faculty) (Faculty, error)
		QueryFaculties(ctx context.Context) ([]Faculty, error)
		GetFacultyByID(ctx context.Context, id string) (Faculty, error)
		GetFacultyByName(ctx context.Context, name string) (Faculty, error)
		DeleteFaculty(ctx context.Context, id string) error

		CreateGroup(ctx context.Context, grp Group) (Group, error)
		FilterGroups(ctx context.Context, filter GroupFilter) ([]Group, error)
		GetGroupByID(ctx context.Context, id string) (Group, error)
		GetGroupByName(ctx context.Context, name, facultyID string) (Group, error)
		DeleteGroup(ctx context.Context, id string) error

		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		FilterSubjects(ctx context.Context, filter SubjectFilter) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		GetSubjectByName(ctx context.Context, name, facultyID string) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error

		CreateSubjectGroup(ctx context.Context, sg SubjectGroup) (SubjectGroup, error)
		FilterSubjectGroups(ctx context.Context, filter SubjectGroupFilter) ([]SubjectGroup, error)
		GetSubjectGroupByID(ctx context.Context, id string) (SubjectGroup, error)
		GetSubjectGroup(ctx context.Context, subjectID, groupID string) (SubjectGroup, error)
		DeleteSubjectGroup(ctx context.Context, id string) error

		CreateGrade(ctx context.Context, grd Grade) (Grade, error)
		FilterGrades(ctx context.Context, filter GradeFilter) ([]Grade, error)
		GetGradeByID(ctx context.Context, id string) (Grade, error)
		UpdateGrade(ctx context.Context, grd Grade) (Grade, error)
		DeleteGrade(ctx context.Context, id string) error

		CreateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		FilterAttendance(ctx context.Context, filter AttendanceFilter) ([]Attendance, error)
		GetAttendanceByID(ctx context.Context, id string) (Attendance, error)
		UpdateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		DeleteAttendance(ctx context.Context, id string) error

		AssignTeacherSubject(ctx context.Context, teacherID, subjectID string) error
		RemoveTeacherSubject(ctx context.Context, teacherID, subjectID string) error
		GetTeacherSubjects(ctx context.Context, teacherID string) ([]Subject, error)
		QueryTeacherSubjects(ctx context.Context) ([]TeacherSubject, error)
	}

	Service interface {
		CreateFaculty(ctx context.Context, nf NewFaculty) (Faculty, error)
		QueryFaculties(ctx context.Context) ([]Faculty, error)
		GetFaculty(ctx context.Context, id string) (Faculty, error)
		GetFacultyByName(ctx context.Context, name string) (Faculty, error)
		DeleteFaculty(ctx context.Context, id string) error

		CreateGroup(ctx context.Context, ng NewGroup) (Group, error)
		QueryGroups(ctx context.Context, filter *GroupFilter) ([]Group, error)
		GetGroup(ctx context.Context, id string) (Group, error)
		GetGroupByName(ctx context.Context, name, facultyID string) (Group, error)
		DeleteGroup(ctx context.Context, id string) error

		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		QuerySubjects(ctx context.Context, filter *SubjectFilter) ([]Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		GetSubjectByName(ctx context.Context, name, facultyID string) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error

		CreateSubjectGroup(ctx context.Context, nsg NewSubjectGroup) (SubjectGroup, error)
		QuerySubjectGroups(ctx context.Context, filter *SubjectGroupFilter) ([]SubjectGroup, error)
		GetSubjectGroup(ctx context.Context, id string) (SubjectGroup, error)
		DeleteSubjectGroup(ctx context.Context, id string) error

		CreateGrade(ctx context.Context, ng NewGrade) (Grade, error)
		QueryGrades(ctx context.Context, filter *GradeFilter) ([]Grade, error)
		UpdateGrade(ctx context.Context, id string, ug UpdateGrade) (Grade, error)
		DeleteGrade(ctx context.Context, id string) error

		RecordAttendance(ctx context.Context, na NewAttendance) (Attendance, error)
		QueryAttendance(ctx context.Context, filter *AttendanceFilter) ([]Attendance, error)
		UpdateAttendance(ctx context.Context, id string, ua UpdateAttendance) (Attendance, error)
		DeleteAttendance(ctx context.Context, id string) error

		// JournalView builds the journal table for a subject taught to a group,
		// linking the two on demand if they are not linked yet.
		JournalView(ctx context.Context, subjectID, groupID string) (View, error)

		AssignSubjectToTeacher(ctx context.Context, teacherID, subjectID string) error
		RemoveSubjectFromTeacher(ctx context.Context, teacherID, subjectID string) error
		TeacherSubjects(ctx context.Context, teacherID string) ([]Subject, error)
		QueryTeacherSubjects(ctx context.Context) ([]TeacherSubject, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service) Service {
	return &service{
		repo:   repo,
		usrSvc: usrSvc,
	}
}

// Faculties

func (svc *service) CreateFaculty(ctx context.Context, nf NewFaculty) (Faculty, error) {
	now := time.Now().UTC()
	fac, err := svc.repo.CreateFaculty(ctx, Faculty{
		Name:      nf.Name,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Cause(err) == ErrFacultyExists {
		return Faculty{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return fac, err
}

func (svc *service) QueryFaculties(ctx context.Context) ([]Faculty, error) {
	return svc.repo.QueryFaculties(ctx)
}

func (svc *service) GetFaculty(ctx context.Context, id string) (Faculty, error) {
	return svc.repo.GetFacultyByID(ctx, id)
}

func (svc *service) GetFacultyByName(ctx context.Context, name string) (Faculty, error) {
	return svc.repo.GetFacultyByName(ctx, name)
}

func (svc *service) DeleteFaculty(ctx context.Context, id string) error {
	return svc.repo.DeleteFaculty(ctx, id)
}

// Groups

func (svc *service) CreateGroup(ctx context.Context, ng NewGroup) (Group, error) {
	if _, err := svc.repo.GetFacultyByID(ctx, ng.FacultyID); err != nil {
		if errors.Cause(err) == ErrFacultyNotFound {
			return Group{}, core.NewValidationError(err, core.FieldError{Field: "faculty_id", Error: err.Error()})
		}
		return Group{}, err
	}
	now := time.Now().UTC()
	grp, err := svc.repo.CreateGroup(ctx, Group{
		Name:      ng.Name,
		FacultyID: ng.FacultyID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Cause(err) == ErrGroupExists {
		return Group{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return grp, err
}

func (svc *service) QueryGroups(ctx context.Context, filter *GroupFilter) ([]Group, error) {
	if filter == nil {
		filter = new(GroupFilter)
	}
	return svc.repo.FilterGroups(ctx, *filter)
}

func (svc *service) GetGroup(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroupByID(ctx, id)
}

func (svc *service) GetGroupByName(ctx context.Context, name, facultyID string) (Group, error) {
	return svc.repo.GetGroupByName(ctx, name, facultyID)
}

func (svc *service) DeleteGroup(ctx context.Context, id string) error {
	return svc.repo.DeleteGroup(ctx, id)
}

// Subjects

func (svc *service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if _, err := svc.repo.GetFacultyByID(ctx, ns.FacultyID); err != nil {
		if errors.Cause(err) == ErrFacultyNotFound {
			return Subject{}, core.NewValidationError(err, core.FieldError{Field: "faculty_id", Error: err.Error()})
		}
		return Subject{}, err
	}
	now := time.Now().UTC()
	sub, err := svc.repo.CreateSubject(ctx, Subject{
		Name:        ns.Name,
		Description: ns.Description,
		FacultyID:   ns.FacultyID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if errors.Cause(err) == ErrSubjectExists {
		return Subject{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return sub, err
}

func (svc *service) QuerySubjects(ctx context.Context, filter *SubjectFilter) ([]Subject, error) {
	if filter == nil {
		filter = new(SubjectFilter)
	}
	return svc.repo.FilterSubjects(ctx, *filter)
}

func (svc *service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *service) GetSubjectByName(ctx context.Context, name, facultyID string) (Subject, error) {
	return svc.repo.GetSubjectByName(ctx, name, facultyID)
}

func (svc *service) DeleteSubject(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, id)
}

// Subject-group links

func (svc *service) CreateSubjectGroup(ctx context.Context, nsg NewSubjectGroup) (SubjectGroup, error) {
	if _, err := svc.repo.GetSubjectByID(ctx, nsg.SubjectID); err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return SubjectGroup{}, core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
		}
		return SubjectGroup{}, err
	}
	if _, err := svc.repo.GetGroupByID(ctx, nsg.GroupID); err != nil {
		if errors.Cause(err) == ErrGroupNotFound {
			return SubjectGroup{}, core.NewValidationError(err, core.FieldError{Field: "group_id", Error: err.Error()})
		}
		return SubjectGroup{}, err
	}
	sg, err := svc.repo.CreateSubjectGroup(ctx, SubjectGroup{
		SubjectID: nsg.SubjectID,
		GroupID:   nsg.GroupID,
		CreatedAt: time.Now().UTC(),
	})
	if errors.Cause(err) == ErrSubjectGroupExists {
		return SubjectGroup{}, core.NewValidationError(err)
	}
	return sg, err
}

func (svc *service) QuerySubjectGroups(ctx context.Context, filter *SubjectGroupFilter) ([]SubjectGroup, error) {
	if filter == nil {
		filter = new(SubjectGroupFilter)
	}
	return svc.repo.FilterSubjectGroups(ctx, *filter)
}

func (svc *service) GetSubjectGroup(ctx context.Context, id string) (SubjectGroup, error) {
	return svc.repo.GetSubjectGroupByID(ctx, id)
}

// DeleteSubjectGroup drops the link and, through it, the grades and
// attendance recorded against it.
func (svc *service) DeleteSubjectGroup(ctx context.Context, id string) error {
	return svc.repo.DeleteSubjectGroup(ctx, id)
}

// Grades

func (svc *service) CreateGrade(ctx context.Context, ng NewGrade) (Grade, error) {
	if err := svc.checkStudent(ctx, ng.StudentID); err != nil {
		return Grade{}, err
	}
	if _, err := svc.repo.GetSubjectGroupByID(ctx, ng.SubjectGroupID); err != nil {
		if errors.Cause(err) == ErrSubjectGroupNotFound {
			return Grade{}, core.NewValidationError(err, core.FieldError{Field: "subject_group_id", Error: err.Error()})
		}
		return Grade{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateGrade(ctx, Grade{
		StudentID:      ng.StudentID,
		SubjectGroupID: ng.SubjectGroupID,
		Grade:          ng.Grade,
		Date:           ng.Date,
		Description:    ng.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *service) QueryGrades(ctx context.Context, filter *GradeFilter) ([]Grade, error) {
	if filter == nil {
		filter = new(GradeFilter)
	}
	return svc.repo.FilterGrades(ctx, *filter)
}

func (svc *service) UpdateGrade(ctx context.Context, id string, ug UpdateGrade) (Grade, error) {
	grd, err := svc.repo.GetGradeByID(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	if ug.Grade != nil {
		grd.Grade = *ug.Grade
	}
	if ug.Date != nil {
		grd.Date = *ug.Date
	}
	if ug.Description != nil {
		grd.Description = *ug.Description
	}
	grd.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGrade(ctx, grd)
}

func (svc *service) DeleteGrade(ctx context.Context, id string) error {
	return svc.repo.DeleteGrade(ctx, id)
}

// Attendance

func (svc *service) RecordAttendance(ctx context.Context, na NewAttendance) (Attendance, error) {
	if err := svc.checkStudent(ctx, na.StudentID); err != nil {
		return Attendance{}, err
	}
	if _, err := svc.repo.GetSubjectGroupByID(ctx, na.SubjectGroupID); err != nil {
		if errors.Cause(err) == ErrSubjectGroupNotFound {
			return Attendance{}, core.NewValidationError(err, core.FieldError{Field: "subject_group_id", Error: err.Error()})
		}
		return Attendance{}, err
	}
	now := time.Now().UTC()
	att, err := svc.repo.CreateAttendance(ctx, Attendance{
		StudentID:      na.StudentID,
		SubjectGroupID: na.SubjectGroupID,
		Date:           na.Date,
		IsPresent:      *na.IsPresent,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if errors.Cause(err) == ErrAttendanceExists {
		return Attendance{}, core.NewValidationError(err)
	}
	return att, err
}

func (svc *service) QueryAttendance(ctx context.Context, filter *AttendanceFilter) ([]Attendance, error) {
	if filter == nil {
		filter = new(AttendanceFilter)
	}
	return svc.repo.FilterAttendance(ctx, *filter)
}

func (svc *service) UpdateAttendance(ctx context.Context, id string, ua UpdateAttendance) (Attendance, error) {
	att, err := svc.repo.GetAttendanceByID(ctx, id)
	if err != nil {
		return Attendance{}, err
	}
	if ua.IsPresent != nil {
		att.IsPresent = *ua.IsPresent
	}
	if ua.Date != nil {
		att.Date = *ua.Date
	}
	att.UpdatedAt = time.Now().UTC()
	updated, err := svc.repo.UpdateAttendance(ctx, att)
	if errors.Cause(err) == ErrAttendanceExists {
		return Attendance{}, core.NewValidationError(err)
	}
	return updated, err
}

func (svc *service) DeleteAttendance(ctx context.Context, id string) error {
	return svc.repo.DeleteAttendance(ctx, id)
}

// Journal view

func (svc *service) JournalView(ctx context.Context, subjectID, groupID string) (View, error) {
	sub, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return View{}, err
	}
	grp, err := svc.repo.GetGroupByID(ctx, groupID)
	if err != nil {
		return View{}, err
	}
	fac, err := svc.repo.GetFacultyByID(ctx, grp.FacultyID)
	if err != nil {
		return View{}, err
	}

	sg, err := svc.repo.GetSubjectGroup(ctx, subjectID, groupID)
	if err != nil {
		if errors.Cause(err) != ErrSubjectGroupNotFound {
			return View{}, err
		}
		sg, err = svc.repo.CreateSubjectGroup(ctx, SubjectGroup{
			SubjectID: subjectID,
			GroupID:   groupID,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return View{}, errors.Wrap(err, "linking subject to group")
		}
	}

	active, verified := true, true
	students, err := svc.usrSvc.Query(ctx, &user.QueryFilter{
		Role:       user.RoleStudent,
		GroupID:    groupID,
		IsActive:   &active,
		IsVerified: &verified,
	})
	if err != nil {
		return View{}, errors.Wrap(err, "querying group students")
	}

	grades, err := svc.repo.FilterGrades(ctx, GradeFilter{SubjectGroupID: sg.ID})
	if err != nil {
		return View{}, err
	}
	attendance, err := svc.repo.FilterAttendance(ctx, AttendanceFilter{SubjectGroupID: sg.ID})
	if err != nil {
		return View{}, err
	}

	return BuildView(fac, grp, sub, sg, students, grades, attendance), nil
}

// Teacher subjects

func (svc *service) AssignSubjectToTeacher(ctx context.Context, teacherID, subjectID string) error {
	if err := svc.checkTeacher(ctx, teacherID); err != nil {
		return err
	}
	if _, err := svc.repo.GetSubjectByID(ctx, subjectID); err != nil {
		return err
	}
	return svc.repo.AssignTeacherSubject(ctx, teacherID, subjectID)
}

func (svc *service) RemoveSubjectFromTeacher(ctx context.Context, teacherID, subjectID string) error {
	if err := svc.checkTeacher(ctx, teacherID); err != nil {
		return err
	}
	if _, err := svc.repo.GetSubjectByID(ctx, subjectID); err != nil {
		return err
	}
	return svc.repo.RemoveTeacherSubject(ctx, teacherID, subjectID)
}

func (svc *service) TeacherSubjects(ctx context.Context, teacherID string) ([]Subject, error) {
	if err := svc.checkTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	return svc.repo.GetTeacherSubjects(ctx, teacherID)
}

func (svc *service) QueryTeacherSubjects(ctx context.Context) ([]TeacherSubject, error) {
	return svc.repo.QueryTeacherSubjects(ctx)
}

func (svc *service) checkStudent(ctx context.Context, id string) error {
	usr, err := svc.usrSvc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(ErrStudentNotFound, core.FieldError{Field: "student_id", Error: ErrStudentNotFound.Error()})
		}
		return err
	}
	if !usr.IsStudent() {
		return core.NewValidationError(ErrStudentNotFound, core.FieldError{Field: "student_id", Error: ErrStudentNotFound.Error()})
	}
	return nil
}

func (svc *service) checkTeacher(ctx context.Context, id string) error {
	usr, err := svc.usrSvc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return ErrTeacherNotFound
		}
		return err
	}
	if !usr.IsTeacher() {
		return ErrTeacherNotFound
	}
	return nil
}
