package journal

import (
	"fmt"
	"sort"

	"github.com/mzalendo/daftari/core/user"
)

type (
	ViewStudent struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	}

	// View is the journal table for one subject taught to one group: students
	// down the side, class dates across the top, each cell holding the grade
	// (if any) and the attendance mark (if any) for that student on that day.
	View struct {
		Subject        string                      `json:"subject"`
		Group          string                      `json:"group"`
		Faculty        string                      `json:"faculty"`
		SubjectGroupID string                      `json:"subject_group_id"`
		Students       []ViewStudent               `json:"students"`
		Dates          []string                    `json:"dates"`
		Grades         map[string]map[string]*int  `json:"grades"`
		Attendance     map[string]map[string]*bool `json:"attendance"`
	}
)

// BuildView assembles a View from already-loaded records. The date axis is the
// sorted union of all grade and attendance dates; when both are empty it falls
// back to today so the journal never renders without columns.
func BuildView(
	faculty Faculty,
	group Group,
	subject Subject,
	sg SubjectGroup,
	students []user.User,
	grades []Grade,
	attendance []Attendance,
) View {
	dateSet := make(map[string]struct{}, len(grades)+len(attendance))
	for _, g := range grades {
		dateSet[g.Date.String()] = struct{}{}
	}
	for _, a := range attendance {
		dateSet[a.Date.String()] = struct{}{}
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) == 0 {
		dates = []string{Today().String()}
	}

	viewStudents := make([]ViewStudent, 0, len(students))
	gradeCells := make(map[string]map[string]*int, len(students))
	attendanceCells := make(map[string]map[string]*bool, len(students))
	for _, s := range students {
		name := s.FullName
		if name == "" {
			name = fmt.Sprintf("Student %s", s.ID)
		}
		viewStudents = append(viewStudents, ViewStudent{ID: s.ID, Name: name, Username: s.Username})

		gradeCells[s.ID] = make(map[string]*int, len(dates))
		attendanceCells[s.ID] = make(map[string]*bool, len(dates))
		for _, d := range dates {
			gradeCells[s.ID][d] = nil
			attendanceCells[s.ID][d] = nil
		}
	}

	// records of students no longer in the group are skipped
	for _, g := range grades {
		if cells, ok := gradeCells[g.StudentID]; ok {
			if _, ok := cells[g.Date.String()]; ok {
				grade := g.Grade
				cells[g.Date.String()] = &grade
			}
		}
	}
	for _, a := range attendance {
		if cells, ok := attendanceCells[a.StudentID]; ok {
			if _, ok := cells[a.Date.String()]; ok {
				present := a.IsPresent
				cells[a.Date.String()] = &present
			}
		}
	}

	return View{
		Subject:        subject.Name,
		Group:          group.Name,
		Faculty:        faculty.Name,
		SubjectGroupID: sg.ID,
		Students:       viewStudents,
		Dates:          dates,
		Grades:         gradeCells,
		Attendance:     attendanceCells,
	}
}
