package inmemdb

import (
	"sync"

	"github.com/mzalendo/daftari/core/journal"
	"github.com/mzalendo/daftari/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex

		users           map[string]*user.User
		faculties       map[string]*journal.Faculty
		groups          map[string]*journal.Group
		subjects        map[string]*journal.Subject
		subjectGroups   map[string]*journal.SubjectGroup
		grades          map[string]*journal.Grade
		attendance      map[string]*journal.Attendance
		teacherSubjects map[string]map[string]struct{} // teacherID -> subjectIDs
	}
)

func Open() (*DB, error) {
	db := new(DB)
	db.reset()
	return db, nil
}

// Reset drops all stored data. Test helper.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.users = make(map[string]*user.User)
	db.faculties = make(map[string]*journal.Faculty)
	db.groups = make(map[string]*journal.Group)
	db.subjects = make(map[string]*journal.Subject)
	db.subjectGroups = make(map[string]*journal.SubjectGroup)
	db.grades = make(map[string]*journal.Grade)
	db.attendance = make(map[string]*journal.Attendance)
	db.teacherSubjects = make(map[string]map[string]struct{})
}
