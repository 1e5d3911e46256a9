package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mzalendo/daftari/core"
	"github.com/mzalendo/daftari/core/journal"
)

type (
	facultyRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	groupRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		FacultyID string    `db:"faculty_id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	subjectRow struct {
		ID          string    `db:"id"`
		Name        string    `db:"name"`
		Description string    `db:"description"`
		FacultyID   string    `db:"faculty_id"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	subjectGroupRow struct {
		ID        string    `db:"id"`
		SubjectID string    `db:"subject_id"`
		GroupID   string    `db:"group_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	gradeRow struct {
		ID             string       `db:"id"`
		StudentID      string       `db:"student_id"`
		SubjectGroupID string       `db:"subject_group_id"`
		Grade          int          `db:"grade"`
		Date           journal.Date `db:"date"`
		Description    string       `db:"description"`
		CreatedAt      time.Time    `db:"created_at"`
		UpdatedAt      time.Time    `db:"updated_at"`
	}

	attendanceRow struct {
		ID             string       `db:"id"`
		StudentID      string       `db:"student_id"`
		SubjectGroupID string       `db:"subject_group_id"`
		Date           journal.Date `db:"date"`
		IsPresent      bool         `db:"is_present"`
		CreatedAt      time.Time    `db:"created_at"`
		UpdatedAt      time.Time    `db:"updated_at"`
	}
)

type journalRepository struct {
	db core.DBExecutor
}

var _ journal.Repository = (*journalRepository)(nil) // interface compliance check

func NewJournalRepository(db core.DBExecutor) *journalRepository {
	return &journalRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func (repo journalRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo journalRepository) trapUniqueErr(err, exists error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return exists
	}
	return errors.Wrap(err, msg)
}

// Faculties

func (repo journalRepository) CreateFaculty(ctx context.Context, fac journal.Faculty) (journal.Faculty, error) {
	fac.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO faculty (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		fac.ID, fac.Name, fac.CreatedAt.UTC(), fac.UpdatedAt.UTC(),
	)
	if err != nil {
		return journal.Faculty{}, repo.trapUniqueErr(err, journal.ErrFacultyExists, "inserting faculty")
	}
	return fac, nil
}

func (repo journalRepository) QueryFaculties(ctx context.Context) ([]journal.Faculty, error) {
	var rows []facultyRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM faculty ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying faculties")
	}
	faculties := make([]journal.Faculty, 0, len(rows))
	for _, row := range rows {
		faculties = append(faculties, journal.Faculty(row))
	}
	return faculties, nil
}

func (repo journalRepository) GetFacultyByID(ctx context.Context, id string) (journal.Faculty, error) {
	if _, err := uuid.Parse(id); err != nil {
		return journal.Faculty{}, journal.ErrFacultyNotFound
	}
	var row facultyRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM faculty WHERE id = $1`, id); err != nil {
		return journal.Faculty{}, repo.trapNoRowsErr(err, journal.ErrFacultyNotFound, "finding faculty by ID")
	}
	return journal.Faculty(row), nil
}

// Groups

func (repo journalRepository) CreateGroup(ctx context.Context, grp journal.Group) (journal.Group, error) {
	grp.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO "group" (id, name, faculty_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		grp.ID, grp.Name, grp.FacultyID, grp.CreatedAt.UTC(), grp.UpdatedAt.UTC(),
	)
	if err != nil {
		return journal.Group{}, repo.trapUniqueErr(err, journal.ErrGroupExists, "inserting group")
	}
	return grp, nil
}

func (repo journalRepository) FilterGroups(ctx context.Context, filter journal.GroupFilter) ([]journal.Group, error) {
	query := `SELECT * FROM "group"`
	var args []interface{}
	if filter.FacultyID != "" {
		query += ` WHERE faculty_id = $1`
		args = append(args, filter.FacultyID)
	}
	query += ` ORDER BY name`

	var rows []groupRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	groups := make([]journal.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, journal.Group(row))
	}
	return groups, nil
}

func (repo journalRepository) GetGroupByID(ctx context.Context, id string) (journal.Group, error) {
	if _, err := uuid.Parse(id); err != nil {
		return journal.Group{}, journal.ErrGroupNotFound
	}
	var row groupRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "group" WHERE id = $1`, id); err != nil {
		return journal.Group{}, repo.trapNoRowsErr(err, journal.ErrGroupNotFound, "finding group by ID")
	}
	return journal.Group(row), nil
}

// Subjects

func (repo journalRepository) CreateSubject(ctx context.Context, sub journal.Subject) (journal.Subject, error) {
	sub.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO subject (id, name, description, faculty_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.Name, sub.Description, sub.FacultyID, sub.CreatedAt.UTC(), sub.UpdatedAt.UTC(),
	)
	if err != nil {
		return journal.Subject{}, repo.trapUniqueErr(err, journal.ErrSubjectExists, "inserting subject")
	}
	return sub, nil
}

func (repo journalRepository) FilterSubjects(ctx context.Context, filter journal.SubjectFilter) ([]journal.Subject, error) {
	query := `SELECT * FROM subject`
	var args []interface{}
	if filter.FacultyID != "" {
		query += ` WHERE faculty_id = $1`
		args = append(args, filter.FacultyID)
	}
	query += ` ORDER BY name`

	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]journal.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, journal.Subject(row))
	}
	return subjects, nil
}

func (repo journalRepository) GetSubjectByID(ctx context.Context, id string) (journal.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return journal.Subject{}, journal.ErrSubjectNotFound
	}
	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM subject WHERE id = $1`, id); err != nil {
		return journal.Subject{}, repo.trapNoRowsErr(err, journal.ErrSubjectNotFound, "finding subject by ID")
	}
	return journal.Subject(row), nil
}

// Subject-group links

func (repo journalRepository) CreateSubjectGroup(ctx context.Context, sg journal.SubjectGroup) (journal.SubjectGroup, error) {
	sg.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO subject_group (id, subject_id, group_id, created_at) VALUES ($1, $2, $3, $4)`,
		sg.ID, sg.SubjectID, sg.GroupID, sg.CreatedAt.UTC(),
	)
	if err != nil {
		return journal.SubjectGroup{}, repo.trapUniqueErr(err, journal.ErrSubjectGroupExists, "inserting subject-group link")
	}
	return sg, nil
}

func (repo journalRepository) FilterSubjectGroups(ctx context.Context, filter journal.SubjectGroupFilter) ([]journal.SubjectGroup, error) {
	query := `SELECT * FROM subject_group`
	var clauses []string
	var args []interface{}
	if filter.SubjectID != "" {
		clauses = append(clauses, `subject_id = ?`)
		args = append(args, filter.SubjectID)
	}
	if filter.GroupID != "" {
		clauses = append(clauses, `group_id = ?`)
		args = append(args, filter.GroupID)
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY created_at`

	var rows []subjectGroupRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying subject-group links")
	}
	links := make([]journal.SubjectGroup, 0, len(rows))
	for _, row := range rows {
		links = append(links, journal.SubjectGroup(row))
	}
	return links, nil
}

func (repo journalRepository) GetSubjectGroupByID(ctx context.Context, id string) (journal.SubjectGroup, error) {
	if _, err := uuid.Parse(id); err != nil {
		return journal.SubjectGroup{}, journal.ErrSubjectGroupNotFound
	}
	var row subjectGroupRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM subject_group WHERE id = $1`, id); err != nil {
		return journal.SubjectGroup{}, repo.trapNoRowsErr(err, journal.ErrSubjectGroupNotFound, "finding subject-group link by ID")
	}
	return journal.SubjectGroup(row), nil
}

func (repo journalRepository) GetSubjectGroup(ctx context.Context, subjectID, groupID string) (journal.SubjectGroup, error) {
	var row subjectGroupRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM subject_group WHERE subject_id = $1 AND group_id = $2`, subjectID, groupID)
	if err != nil {
		return journal.SubjectGroup{}, repo.trapNoRowsErr(err, journal.ErrSubjectGroupNotFound, "finding subject-group link")
	}
	return journal.SubjectGroup(row), nil
}

// Grades

func (repo journalRepository) CreateGrade(ctx context.Context, grd journal.Grade) (journal.Grade, error) {
	grd.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO grade (id, student_id, subject_group_id, grade, date, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		grd.ID, grd.StudentID, grd.SubjectGroupID, grd.Grade, grd.Date, grd.Description, grd.CreatedAt.UTC(), grd.UpdatedAt.UTC(),
	)
	if err != nil {
		return journal.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return grd, nil
}

func (repo journalRepository) FilterGrades(ctx context.Context, filter journal.GradeFilter) ([]journal.Grade, error) {
	query := `SELECT * FROM grade`
	var clauses []string
	var args []interface{}
	if filter.StudentID != "" {
		clauses = append(clauses, `student_id = ?`)
		args = append(args, filter.StudentID)
	}
	if filter.SubjectGroupID != "" {
		clauses = append(clauses, `subject_group_id = ?`)
		args = append(args, filter.SubjectGroupID)
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY date`

	var rows []gradeRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]journal.Grade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, journal.Grade(row))
	}
	return grades, nil
}

func (repo journalRepository) GetGradeByID(ctx context.Context, id string) (journal.Grade, error) {
	if _, err := uuid.Parse(id); err != nil {
		return journal.Grade{}, journal.ErrGradeNotFound
	}
	var row gradeRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM grade WHERE id = $1`, id); err != nil {
		return journal.Grade{}, repo.trapNoRowsErr(err, journal.ErrGradeNotFound, "finding grade by ID")
	}
	return journal.Grade(row), nil
}

func (repo journalRepository) UpdateGrade(ctx context.Context, grd journal.Grade) (journal.Grade, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE grade SET grade = $1, date = $2, description = $3, updated_at = $4 WHERE id = $5`,
		grd.Grade, grd.Date, grd.Description, grd.UpdatedAt.UTC(), grd.ID,
	)
	if err != nil {
		return journal.Grade{}, errors.Wrap(err, "updating grade")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return journal.Grade{}, journal.ErrGradeNotFound
	}
	return grd, nil
}

// Attendance

func (repo journalRepository) CreateAttendance(ctx context.Context, att journal.Attendance) (journal.Attendance, error) {
	att.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO attendance (id, student_id, subject_group_id, date, is_present, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		att.ID, att.StudentID, att.SubjectGroupID, att.Date, att.IsPresent, att.CreatedAt.UTC(), att.UpdatedAt.UTC(),
	)
	if err != nil {
		return journal.Attendance{}, repo.trapUniqueErr(err, journal.ErrAttendanceExists, "inserting attendance")
	}
	return att, nil
}

func (repo journalRepository) FilterAttendance(ctx context.Context, filter journal.AttendanceFilter) ([]journal.Attendance, error) {
	query := `SELECT * FROM attendance`
	var clauses []string
	var args []interface{}
	if filter.StudentID != "" {
		clauses = append(clauses, `student_id = ?`)
		args = append(args, filter.StudentID)
	}
	if filter.SubjectGroupID != "" {
		clauses = append(clauses, `subject_group_id = ?`)
		args = append(args, filter.SubjectGroupID)
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY date`

	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]journal.Attendance, 0, len(rows))
	for _, row := range rows {
		records = append(records, journal.Attendance(row))
	}
	return records, nil
}

func (repo journalRepository) GetAttendanceByID(ctx context.Context, id string) (journal.Attendance, error) {
	if _, err := uuid.Parse(id); err != nil {
		return journal.Attendance{}, journal.ErrAttendanceNotFound
	}
	var row attendanceRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM attendance WHERE id = $1`, id); err != nil {
		return journal.Attendance{}, repo.trapNoRowsErr(err, journal.ErrAttendanceNotFound, "finding attendance by ID")
	}
	return journal.Attendance(row), nil
}

func (repo journalRepository) UpdateAttendance(ctx context.Context, att journal.Attendance) (journal.Attendance, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE attendance SET date = $1, is_present = $2, updated_at = $3 WHERE id = $4`,
		att.Date, att.IsPresent, att.UpdatedAt.UTC(), att.ID,
	)
	if err != nil {
		return journal.Attendance{}, repo.trapUniqueErr(err, journal.ErrAttendanceExists, "updating attendance")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return journal.Attendance{}, journal.ErrAttendanceNotFound
	}
	return att, nil
}

// Teacher subjects

func (repo journalRepository) AssignTeacherSubject(ctx context.Context, teacherID, subjectID string) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO teacher_subject (user_id, subject_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		teacherID, subjectID,
	)
	return errors.Wrap(err, "assigning subject to teacher")
}

func (repo journalRepository) RemoveTeacherSubject(ctx context.Context, teacherID, subjectID string) error {
	_, err := repo.db.ExecContext(ctx,
		`DELETE FROM teacher_subject WHERE user_id = $1 AND subject_id = $2`,
		teacherID, subjectID,
	)
	return errors.Wrap(err, "removing subject from teacher")
}

func (repo journalRepository) GetTeacherSubjects(ctx context.Context, teacherID string) ([]journal.Subject, error) {
	var rows []subjectRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT s.* FROM subject s JOIN teacher_subject ts ON ts.subject_id = s.id WHERE ts.user_id = $1 ORDER BY s.name`,
		teacherID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher subjects")
	}
	subjects := make([]journal.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, journal.Subject(row))
	}
	return subjects, nil
}

// Lookups by name

func (repo journalRepository) GetFacultyByName(ctx context.Context, name string) (journal.Faculty, error) {
	var row facultyRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM faculty WHERE name = $1`, name); err != nil {
		return journal.Faculty{}, repo.trapNoRowsErr(err, journal.ErrFacultyNotFound, "finding faculty by name")
	}
	return journal.Faculty(row), nil
}

func (repo journalRepository) GetGroupByName(ctx context.Context, name, facultyID string) (journal.Group, error) {
	var row groupRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM "group" WHERE name = $1 AND faculty_id = $2`, name, facultyID)
	if err != nil {
		return journal.Group{}, repo.trapNoRowsErr(err, journal.ErrGroupNotFound, "finding group by name")
	}
	return journal.Group(row), nil
}

func (repo journalRepository) GetSubjectByName(ctx context.Context, name, facultyID string) (journal.Subject, error) {
	var row subjectRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM subject WHERE name = $1 AND faculty_id = $2`, name, facultyID)
	if err != nil {
		return journal.Subject{}, repo.trapNoRowsErr(err, journal.ErrSubjectNotFound, "finding subject by name")
	}
	return journal.Subject(row), nil
}

// Deletes; the schema cascades to children.

func (repo journalRepository) deleteRow(ctx context.Context, query, id string, notFound error, msg string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound
	}
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, msg)
	} else if n == 0 {
		return notFound
	}
	return nil
}

func (repo journalRepository) DeleteFaculty(ctx context.Context, id string) error {
	return repo.deleteRow(ctx, `DELETE FROM faculty WHERE id = $1`, id, journal.ErrFacultyNotFound, "deleting faculty")
}

func (repo journalRepository) DeleteGroup(ctx context.Context, id string) error {
	return repo.deleteRow(ctx, `DELETE FROM "group" WHERE id = $1`, id, journal.ErrGroupNotFound, "deleting group")
}

func (repo journalRepository) DeleteSubject(ctx context.Context, id string) error {
	return repo.deleteRow(ctx, `DELETE FROM subject WHERE id = $1`, id, journal.ErrSubjectNotFound, "deleting subject")
}

func (repo journalRepository) DeleteSubjectGroup(ctx context.Context, id string) error {
	return repo.deleteRow(ctx, `DELETE FROM subject_group WHERE id = $1`, id, journal.ErrSubjectGroupNotFound, "deleting subject-group link")
}

func (repo journalRepository) DeleteGrade(ctx context.Context, id string) error {
	return repo.deleteRow(ctx, `DELETE FROM grade WHERE id = $1`, id, journal.ErrGradeNotFound, "deleting grade")
}

func (repo journalRepository) DeleteAttendance(ctx context.Context, id string) error {
	return repo.deleteRow(ctx, `DELETE FROM attendance WHERE id = $1`, id, journal.ErrAttendanceNotFound, "deleting attendance record")
}

// Teacher-subject listing

type teacherSubjectRow struct {
	TeacherID string `db:"teacher_id"`
	SubjectID string `db:"subject_id"`
}

func (repo journalRepository) QueryTeacherSubjects(ctx context.Context) ([]journal.TeacherSubject, error) {
	var rows []teacherSubjectRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT user_id AS teacher_id, subject_id FROM teacher_subject ORDER BY user_id, subject_id`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher-subject links")
	}
	links := make([]journal.TeacherSubject, 0, len(rows))
	for _, row := range rows {
		links = append(links, journal.TeacherSubject(row))
	}
	return links, nil
}
