package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mzalendo/daftari/core/journal"
)

type journalRepository struct {
	db *DB
}

var _ journal.Repository = (*journalRepository)(nil) // interface compliance check

func NewJournalRepository(db *DB) *journalRepository {
	return &journalRepository{db: db}
}

// Faculties

func (repo *journalRepository) CreateFaculty(_ context.Context, fac journal.Faculty) (journal.Faculty, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, f := range repo.db.faculties {
		if f.Name == fac.Name {
			return journal.Faculty{}, journal.ErrFacultyExists
		}
	}
	fac.ID = uuid.New().String()
	repo.db.faculties[fac.ID] = &fac
	return fac, nil
}

func (repo *journalRepository) QueryFaculties(_ context.Context) ([]journal.Faculty, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	faculties := make([]journal.Faculty, 0, len(repo.db.faculties))
	for _, f := range repo.db.faculties {
		faculties = append(faculties, *f)
	}
	sort.Slice(faculties, func(i, j int) bool { return faculties[i].Name < faculties[j].Name })
	return faculties, nil
}

func (repo *journalRepository) GetFacultyByID(_ context.Context, id string) (journal.Faculty, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if fac, ok := repo.db.faculties[id]; ok {
		return *fac, nil
	}
	return journal.Faculty{}, journal.ErrFacultyNotFound
}

// Groups

func (repo *journalRepository) CreateGroup(_ context.Context, grp journal.Group) (journal.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, g := range repo.db.groups {
		if g.Name == grp.Name && g.FacultyID == grp.FacultyID {
			return journal.Group{}, journal.ErrGroupExists
		}
	}
	grp.ID = uuid.New().String()
	repo.db.groups[grp.ID] = &grp
	return grp, nil
}

func (repo *journalRepository) FilterGroups(_ context.Context, filter journal.GroupFilter) ([]journal.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groups := make([]journal.Group, 0, len(repo.db.groups))
	for _, g := range repo.db.groups {
		if filter.FacultyID != "" && g.FacultyID != filter.FacultyID {
			continue
		}
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *journalRepository) GetGroupByID(_ context.Context, id string) (journal.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if grp, ok := repo.db.groups[id]; ok {
		return *grp, nil
	}
	return journal.Group{}, journal.ErrGroupNotFound
}

// Subjects

func (repo *journalRepository) CreateSubject(_ context.Context, sub journal.Subject) (journal.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, s := range repo.db.subjects {
		if s.Name == sub.Name && s.FacultyID == sub.FacultyID {
			return journal.Subject{}, journal.ErrSubjectExists
		}
	}
	sub.ID = uuid.New().String()
	repo.db.subjects[sub.ID] = &sub
	return sub, nil
}

func (repo *journalRepository) FilterSubjects(_ context.Context, filter journal.SubjectFilter) ([]journal.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := make([]journal.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		if filter.FacultyID != "" && s.FacultyID != filter.FacultyID {
			continue
		}
		subjects = append(subjects, *s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *journalRepository) GetSubjectByID(_ context.Context, id string) (journal.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.subjects[id]; ok {
		return *sub, nil
	}
	return journal.Subject{}, journal.ErrSubjectNotFound
}

// Subject-group links

func (repo *journalRepository) CreateSubjectGroup(_ context.Context, sg journal.SubjectGroup) (journal.SubjectGroup, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, l := range repo.db.subjectGroups {
		if l.SubjectID == sg.SubjectID && l.GroupID == sg.GroupID {
			return journal.SubjectGroup{}, journal.ErrSubjectGroupExists
		}
	}
	sg.ID = uuid.New().String()
	repo.db.subjectGroups[sg.ID] = &sg
	return sg, nil
}

func (repo *journalRepository) FilterSubjectGroups(_ context.Context, filter journal.SubjectGroupFilter) ([]journal.SubjectGroup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	links := make([]journal.SubjectGroup, 0, len(repo.db.subjectGroups))
	for _, l := range repo.db.subjectGroups {
		if filter.SubjectID != "" && l.SubjectID != filter.SubjectID {
			continue
		}
		if filter.GroupID != "" && l.GroupID != filter.GroupID {
			continue
		}
		links = append(links, *l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].CreatedAt.Before(links[j].CreatedAt) })
	return links, nil
}

func (repo *journalRepository) GetSubjectGroupByID(_ context.Context, id string) (journal.SubjectGroup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sg, ok := repo.db.subjectGroups[id]; ok {
		return *sg, nil
	}
	return journal.SubjectGroup{}, journal.ErrSubjectGroupNotFound
}

func (repo *journalRepository) GetSubjectGroup(_ context.Context, subjectID, groupID string) (journal.SubjectGroup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sg := range repo.db.subjectGroups {
		if sg.SubjectID == subjectID && sg.GroupID == groupID {
			return *sg, nil
		}
	}
	return journal.SubjectGroup{}, journal.ErrSubjectGroupNotFound
}

// Grades

func (repo *journalRepository) CreateGrade(_ context.Context, grd journal.Grade) (journal.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	grd.ID = uuid.New().String()
	repo.db.grades[grd.ID] = &grd
	return grd, nil
}

func (repo *journalRepository) FilterGrades(_ context.Context, filter journal.GradeFilter) ([]journal.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	grades := make([]journal.Grade, 0, len(repo.db.grades))
	for _, g := range repo.db.grades {
		if filter.StudentID != "" && g.StudentID != filter.StudentID {
			continue
		}
		if filter.SubjectGroupID != "" && g.SubjectGroupID != filter.SubjectGroupID {
			continue
		}
		grades = append(grades, *g)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].Date.Before(grades[j].Date.Time) })
	return grades, nil
}

func (repo *journalRepository) GetGradeByID(_ context.Context, id string) (journal.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if grd, ok := repo.db.grades[id]; ok {
		return *grd, nil
	}
	return journal.Grade{}, journal.ErrGradeNotFound
}

func (repo *journalRepository) UpdateGrade(_ context.Context, grd journal.Grade) (journal.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.grades[grd.ID]; !ok {
		return journal.Grade{}, journal.ErrGradeNotFound
	}
	repo.db.grades[grd.ID] = &grd
	return grd, nil
}

// Attendance

func (repo *journalRepository) CreateAttendance(_ context.Context, att journal.Attendance) (journal.Attendance, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, a := range repo.db.attendance {
		if a.StudentID == att.StudentID && a.SubjectGroupID == att.SubjectGroupID && a.Date.Equal(att.Date.Time) {
			return journal.Attendance{}, journal.ErrAttendanceExists
		}
	}
	att.ID = uuid.New().String()
	repo.db.attendance[att.ID] = &att
	return att, nil
}

func (repo *journalRepository) FilterAttendance(_ context.Context, filter journal.AttendanceFilter) ([]journal.Attendance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]journal.Attendance, 0, len(repo.db.attendance))
	for _, a := range repo.db.attendance {
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		if filter.SubjectGroupID != "" && a.SubjectGroupID != filter.SubjectGroupID {
			continue
		}
		records = append(records, *a)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date.Time) })
	return records, nil
}

func (repo *journalRepository) GetAttendanceByID(_ context.Context, id string) (journal.Attendance, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if att, ok := repo.db.attendance[id]; ok {
		return *att, nil
	}
	return journal.Attendance{}, journal.ErrAttendanceNotFound
}

func (repo *journalRepository) UpdateAttendance(_ context.Context, att journal.Attendance) (journal.Attendance, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.attendance[att.ID]; !ok {
		return journal.Attendance{}, journal.ErrAttendanceNotFound
	}
	for _, a := range repo.db.attendance {
		if a.ID != att.ID && a.StudentID == att.StudentID && a.SubjectGroupID == att.SubjectGroupID && a.Date.Equal(att.Date.Time) {
			return journal.Attendance{}, journal.ErrAttendanceExists
		}
	}
	repo.db.attendance[att.ID] = &att
	return att, nil
}

// Teacher subjects

func (repo *journalRepository) AssignTeacherSubject(_ context.Context, teacherID, subjectID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.db.teacherSubjects[teacherID] == nil {
		repo.db.teacherSubjects[teacherID] = make(map[string]struct{})
	}
	repo.db.teacherSubjects[teacherID][subjectID] = struct{}{}
	return nil
}

func (repo *journalRepository) RemoveTeacherSubject(_ context.Context, teacherID, subjectID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.teacherSubjects[teacherID], subjectID)
	return nil
}

func (repo *journalRepository) GetTeacherSubjects(_ context.Context, teacherID string) ([]journal.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := make([]journal.Subject, 0, len(repo.db.teacherSubjects[teacherID]))
	for id := range repo.db.teacherSubjects[teacherID] {
		if sub, ok := repo.db.subjects[id]; ok {
			subjects = append(subjects, *sub)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *journalRepository) QueryTeacherSubjects(_ context.Context) ([]journal.TeacherSubject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	links := make([]journal.TeacherSubject, 0, len(repo.db.teacherSubjects))
	for teacherID, subjectIDs := range repo.db.teacherSubjects {
		for subjectID := range subjectIDs {
			links = append(links, journal.TeacherSubject{TeacherID: teacherID, SubjectID: subjectID})
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].TeacherID != links[j].TeacherID {
			return links[i].TeacherID < links[j].TeacherID
		}
		return links[i].SubjectID < links[j].SubjectID
	})
	return links, nil
}

// Lookups by name

func (repo *journalRepository) GetFacultyByName(_ context.Context, name string) (journal.Faculty, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, fac := range repo.db.faculties {
		if fac.Name == name {
			return *fac, nil
		}
	}
	return journal.Faculty{}, journal.ErrFacultyNotFound
}

func (repo *journalRepository) GetGroupByName(_ context.Context, name, facultyID string) (journal.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, grp := range repo.db.groups {
		if grp.Name == name && grp.FacultyID == facultyID {
			return *grp, nil
		}
	}
	return journal.Group{}, journal.ErrGroupNotFound
}

func (repo *journalRepository) GetSubjectByName(_ context.Context, name, facultyID string) (journal.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sub := range repo.db.subjects {
		if sub.Name == name && sub.FacultyID == facultyID {
			return *sub, nil
		}
	}
	return journal.Subject{}, journal.ErrSubjectNotFound
}

// Deletes; children go with their parent, mirroring the FK cascades of the
// SQL schema. Callers must hold the write lock for the *Locked helpers.

func (repo *journalRepository) DeleteFaculty(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.faculties[id]; !ok {
		return journal.ErrFacultyNotFound
	}
	for gid, grp := range repo.db.groups {
		if grp.FacultyID == id {
			repo.removeGroupLocked(gid)
		}
	}
	for sid, sub := range repo.db.subjects {
		if sub.FacultyID == id {
			repo.removeSubjectLocked(sid)
		}
	}
	delete(repo.db.faculties, id)
	return nil
}

func (repo *journalRepository) DeleteGroup(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.groups[id]; !ok {
		return journal.ErrGroupNotFound
	}
	repo.removeGroupLocked(id)
	return nil
}

func (repo *journalRepository) DeleteSubject(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return journal.ErrSubjectNotFound
	}
	repo.removeSubjectLocked(id)
	return nil
}

func (repo *journalRepository) DeleteSubjectGroup(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjectGroups[id]; !ok {
		return journal.ErrSubjectGroupNotFound
	}
	repo.removeSubjectGroupLocked(id)
	return nil
}

func (repo *journalRepository) DeleteGrade(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.grades[id]; !ok {
		return journal.ErrGradeNotFound
	}
	delete(repo.db.grades, id)
	return nil
}

func (repo *journalRepository) DeleteAttendance(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.attendance[id]; !ok {
		return journal.ErrAttendanceNotFound
	}
	delete(repo.db.attendance, id)
	return nil
}

func (repo *journalRepository) removeGroupLocked(id string) {
	for sgID, sg := range repo.db.subjectGroups {
		if sg.GroupID == id {
			repo.removeSubjectGroupLocked(sgID)
		}
	}
	delete(repo.db.groups, id)
}

func (repo *journalRepository) removeSubjectLocked(id string) {
	for sgID, sg := range repo.db.subjectGroups {
		if sg.SubjectID == id {
			repo.removeSubjectGroupLocked(sgID)
		}
	}
	for _, subjectIDs := range repo.db.teacherSubjects {
		delete(subjectIDs, id)
	}
	delete(repo.db.subjects, id)
}

func (repo *journalRepository) removeSubjectGroupLocked(id string) {
	for gid, grd := range repo.db.grades {
		if grd.SubjectGroupID == id {
			delete(repo.db.grades, gid)
		}
	}
	for aid, att := range repo.db.attendance {
		if att.SubjectGroupID == id {
			delete(repo.db.attendance, aid)
		}
	}
	delete(repo.db.subjectGroups, id)
}
