package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	echoapi "github.com/mzalendo/daftari/apps/api/echo"
	"github.com/mzalendo/daftari/core/journal"
	"github.com/mzalendo/daftari/core/user"
)

func createSubjectGroup(t *testing.T, subjectID, groupID string) journal.SubjectGroup {
	t.Helper()
	sg, err := jrnSvc.CreateSubjectGroup(context.Background(), journal.NewSubjectGroup{SubjectID: subjectID, GroupID: groupID})
	if err != nil {
		t.Fatalf("CreateSubjectGroup(): %v", err)
	}
	return sg
}

func createGrade(t *testing.T, studentID, sgID string, grade int, date journal.Date) journal.Grade {
	t.Helper()
	grd, err := jrnSvc.CreateGrade(context.Background(), journal.NewGrade{
		StudentID:      studentID,
		SubjectGroupID: sgID,
		Grade:          grade,
		Date:           date,
	})
	if err != nil {
		t.Fatalf("CreateGrade(): %v", err)
	}
	return grd
}

func recordAttendance(t *testing.T, studentID, sgID string, date journal.Date, present bool) journal.Attendance {
	t.Helper()
	att, err := jrnSvc.RecordAttendance(context.Background(), journal.NewAttendance{
		StudentID:      studentID,
		SubjectGroupID: sgID,
		Date:           date,
		IsPresent:      &present,
	})
	if err != nil {
		t.Fatalf("RecordAttendance(): %v", err)
	}
	return att
}

func Test_journalApi_faculties(t *testing.T) {
	resetDB(t)

	student := createUser(t, "hero", "hero@test.cd", "LolC@t123", user.RoleStudent, "", true, true)
	admin := createUser(t, "admin", "admin@test.cd", "LolC@t123", user.RoleAdmin, "", true, true)
	adminToken := getToken(t, admin)

	eng := createFaculty(t, "Engineering")

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/api/faculties",
			body: marchallObj(t, journal.NewFaculty{Name: "Law"}), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required", method: http.MethodPost, path: "/api/faculties", token: getToken(t, student),
			body: marchallObj(t, journal.NewFaculty{Name: "Law"}), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, newHTTPErr("permission denied")),
		},
		{
			name: "required fields", method: http.MethodPost, path: "/api/faculties", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "duplicate name", method: http.MethodPost, path: "/api/faculties", token: adminToken,
			body: marchallObj(t, journal.NewFaculty{Name: "Engineering"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "a faculty with this name already exists"}),
		},
		{
			name: "faculty created", method: http.MethodPost, path: "/api/faculties", token: adminToken,
			body: marchallObj(t, journal.NewFaculty{Name: "Law"}), wantCode: http.StatusCreated,
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/api/faculties/" + eng.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, eng),
		},
		{
			name: "retrieve unknown", method: http.MethodGet, path: "/api/faculties/lol", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, newHTTPErr("not found")),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// the registration form lists faculties without a token
	t.Run("public listing", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/faculties")
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var facs []journal.Faculty
		if err := json.Unmarshal(rec.Body.Bytes(), &facs); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(facs) != 2 {
			t.Errorf("failed! len(faculties) = %d; want 2", len(facs))
		}
	})
}

func Test_journalApi_groups(t *testing.T) {
	resetDB(t)

	admin := createUser(t, "admin", "admin@test.cd", "LolC@t123", user.RoleAdmin, "", true, true)
	adminToken := getToken(t, admin)

	eng := createFaculty(t, "Engineering")
	law := createFaculty(t, "Law")
	se21 := createGroup(t, "SE-21", eng.ID)
	lw21 := createGroup(t, "LW-21", law.ID)

	tests := []httpTest{
		{
			name: "unknown faculty", method: http.MethodPost, path: "/api/groups", token: adminToken,
			body:     marchallObj(t, journal.NewGroup{Name: "SE-22", FacultyID: "c4ca4238-a0b9-4382-8dcc-509a6f75849b"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"faculty_id": "faculty not found"}),
		},
		{
			name: "duplicate name in faculty", method: http.MethodPost, path: "/api/groups", token: adminToken,
			body:     marchallObj(t, journal.NewGroup{Name: "SE-21", FacultyID: eng.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "a group with this name already exists in this faculty"}),
		},
		{
			name: "same name in another faculty", method: http.MethodPost, path: "/api/groups", token: adminToken,
			body:     marchallObj(t, journal.NewGroup{Name: "SE-21", FacultyID: law.ID}),
			wantCode: http.StatusCreated,
		},
		{
			name: "public listing", method: http.MethodGet, path: "/api/groups",
			wantCode: http.StatusOK,
		},
		{
			name: "filter by faculty", method: http.MethodGet, path: "/api/groups?" + url.Values{"faculty_id": {eng.ID}}.Encode(),
			wantCode: http.StatusOK, wantData: marchallList(t, se21),
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/api/groups/" + lw21.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, lw21),
		},
		{
			name: "retrieve unknown", method: http.MethodGet, path: "/api/groups/lol", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, newHTTPErr("not found")),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_journalApi_subjects(t *testing.T) {
	resetDB(t)

	student := createUser(t, "hero", "hero@test.cd", "LolC@t123", user.RoleStudent, "", true, true)
	admin := createUser(t, "admin", "admin@test.cd", "LolC@t123", user.RoleAdmin, "", true, true)
	adminToken := getToken(t, admin)

	eng := createFaculty(t, "Engineering")
	law := createFaculty(t, "Law")
	algo := createSubject(t, "Algorithms", eng.ID)
	createSubject(t, "Contract Law", law.ID)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodGet, path: "/api/subjects",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required to create", method: http.MethodPost, path: "/api/subjects", token: getToken(t, student),
			body:     marchallObj(t, journal.NewSubject{Name: "Databases", FacultyID: eng.ID}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, newHTTPErr("permission denied")),
		},
		{
			name: "unknown faculty", method: http.MethodPost, path: "/api/subjects", token: adminToken,
			body:     marchallObj(t, journal.NewSubject{Name: "Databases", FacultyID: "c4ca4238-a0b9-4382-8dcc-509a6f75849b"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"faculty_id": "faculty not found"}),
		},
		{
			name: "duplicate name in faculty", method: http.MethodPost, path: "/api/subjects", token: adminToken,
			body:     marchallObj(t, journal.NewSubject{Name: "Algorithms", FacultyID: eng.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "a subject with this name already exists in this faculty"}),
		},
		{
			name: "subject created", method: http.MethodPost, path: "/api/subjects", token: adminToken,
			body:     marchallObj(t, journal.NewSubject{Name: "Databases", Description: "SQL and friends", FacultyID: eng.ID}),
			wantCode: http.StatusCreated,
		},
		{
			name: "filter by faculty", method: http.MethodGet, path: "/api/subjects?" + url.Values{"faculty_id": {law.ID}}.Encode(),
			token: getToken(t, student), wantCode: http.StatusOK,
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/api/subjects/" + algo.ID, token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallObj(t, algo),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_journalApi_subjectGroups(t *testing.T) {
	resetDB(t)

	admin := createUser(t, "admin", "admin@test.cd", "LolC@t123", user.RoleAdmin, "", true, true)
	adminToken := getToken(t, admin)

	eng := createFaculty(t, "Engineering")
	se21 := createGroup(t, "SE-21", eng.ID)
	se22 := createGroup(t, "SE-22", eng.ID)
	algo := createSubject(t, "Algorithms", eng.ID)
	link := createSubjectGroup(t, algo.ID, se21.ID)

	tests := []httpTest{
		{
			name: "unknown subject", method: http.MethodPost, path: "/api/subject-groups", token: adminToken,
			body:     marchallObj(t, journal.NewSubjectGroup{SubjectID: "c4ca4238-a0b9-4382-8dcc-509a6f75849b", GroupID: se21.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"subject_id": "subject not found"}),
		},
		{
			name: "unknown group", method: http.MethodPost, path: "/api/subject-groups", token: adminToken,
			body:     marchallObj(t, journal.NewSubjectGroup{SubjectID: algo.ID, GroupID: "c4ca4238-a0b9-4382-8dcc-509a6f75849b"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"group_id": "group not found"}),
		},
		{
			name: "duplicate link", method: http.MethodPost, path: "/api/subject-groups", token: adminToken,
			body:     marchallObj(t, journal.NewSubjectGroup{SubjectID: algo.ID, GroupID: se21.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, newHTTPErr("this subject is already linked to this group")),
		},
		{
			name: "link created", method: http.MethodPost, path: "/api/subject-groups", token: adminToken,
			body:     marchallObj(t, journal.NewSubjectGroup{SubjectID: algo.ID, GroupID: se22.ID}),
			wantCode: http.StatusCreated,
		},
		{
			name: "filter by group", method: http.MethodGet, path: "/api/subject-groups?" + url.Values{"group_id": {se21.ID}}.Encode(),
			token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, link),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_journalApi_grades(t *testing.T) {
	resetDB(t)

	eng := createFaculty(t, "Engineering")
	se21 := createGroup(t, "SE-21", eng.ID)
	algo := createSubject(t, "Algorithms", eng.ID)
	sg := createSubjectGroup(t, algo.ID, se21.ID)

	student := createUser(t, "hero", "hero@test.cd", "LolC@t123", user.RoleStudent, se21.ID, true, true)
	rival := createUser(t, "rival", "rival@test.cd", "LolC@t123", user.RoleStudent, se21.ID, true, true)
	teacher := createUser(t, "teacher", "teacher@test.cd", "LolC@t123", user.RoleTeacher, "", true, true)
	teacherToken := getToken(t, teacher)

	heroGrade := createGrade(t, student.ID, sg.ID, 85, journal.Today())
	rivalGrade := createGrade(t, rival.ID, sg.ID, 60, journal.Today())

	newGrade := journal.NewGrade{StudentID: student.ID, SubjectGroupID: sg.ID, Grade: 90, Date: journal.Today()}

	tests := []httpTest{
		{
			name: "students cannot grade", method: http.MethodPost, path: "/api/grades", token: getToken(t, student),
			body: marchallObj(t, newGrade), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, newHTTPErr("permission denied")),
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/api/grades", token: teacherToken,
			body: marchallObj(t, journal.NewGrade{
				StudentID: "c4ca4238-a0b9-4382-8dcc-509a6f75849b", SubjectGroupID: sg.ID, Grade: 90, Date: journal.Today(),
			}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"student_id": "student not found"}),
		},
		{
			name: "teacher is not a student", method: http.MethodPost, path: "/api/grades", token: teacherToken,
			body: marchallObj(t, journal.NewGrade{
				StudentID: teacher.ID, SubjectGroupID: sg.ID, Grade: 90, Date: journal.Today(),
			}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"student_id": "student not found"}),
		},
		{
			name: "unknown subject-group", method: http.MethodPost, path: "/api/grades", token: teacherToken,
			body: marchallObj(t, journal.NewGrade{
				StudentID: student.ID, SubjectGroupID: "c4ca4238-a0b9-4382-8dcc-509a6f75849b", Grade: 90, Date: journal.Today(),
			}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"subject_group_id": "subject-group link not found"}),
		},
		{
			name: "grade recorded", method: http.MethodPost, path: "/api/grades", token: teacherToken,
			body: marchallObj(t, newGrade), wantCode: http.StatusCreated,
		},
		{
			name: "staff query all", method: http.MethodGet, path: "/api/grades?" + url.Values{"student_id": {rival.ID}}.Encode(),
			token: teacherToken, wantCode: http.StatusOK, wantData: marchallList(t, rivalGrade),
		},
		{
			// the student_id param is ignored for students; they get their own grades
			name: "students see only their own", method: http.MethodGet, path: "/api/grades?" + url.Values{"student_id": {rival.ID}}.Encode(),
			token: getToken(t, student), wantCode: http.StatusOK, extra: student.ID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if ownerID, ok := tt.extra.(string); ok {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var grades []journal.Grade
				if err := json.Unmarshal(rec.Body.Bytes(), &grades); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if len(grades) == 0 {
					t.Fatal("failed! no grades returned")
				}
				for _, grd := range grades {
					if grd.StudentID != ownerID {
						t.Errorf("failed! got grade of student %q; want only %q", grd.StudentID, ownerID)
					}
				}
				return
			}
			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("update grade", func(t *testing.T) {
		better := 95
		req, rec := newAuthRequest(http.MethodPut, "/api/grades/"+heroGrade.ID, teacherToken,
			marchallObj(t, journal.UpdateGrade{Grade: &better}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var grd journal.Grade
		if err := json.Unmarshal(rec.Body.Bytes(), &grd); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if grd.Grade != better {
			t.Errorf("failed! grade = %d; want %d", grd.Grade, better)
		}
	})

	t.Run("update unknown grade", func(t *testing.T) {
		better := 95
		req, rec := newAuthRequest(http.MethodPut, "/api/grades/lol", teacherToken,
			marchallObj(t, journal.UpdateGrade{Grade: &better}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, newHTTPErr("not found"))}, rec)
	})
}

func Test_journalApi_attendance(t *testing.T) {
	resetDB(t)

	eng := createFaculty(t, "Engineering")
	se21 := createGroup(t, "SE-21", eng.ID)
	algo := createSubject(t, "Algorithms", eng.ID)
	sg := createSubjectGroup(t, algo.ID, se21.ID)

	student := createUser(t, "hero", "hero@test.cd", "LolC@t123", user.RoleStudent, se21.ID, true, true)
	rival := createUser(t, "rival", "rival@test.cd", "LolC@t123", user.RoleStudent, se21.ID, true, true)
	teacher := createUser(t, "teacher", "teacher@test.cd", "LolC@t123", user.RoleTeacher, "", true, true)
	teacherToken := getToken(t, teacher)

	today := journal.Today()
	rivalAtt := recordAttendance(t, rival.ID, sg.ID, today, false)

	present := true
	newAtt := journal.NewAttendance{StudentID: student.ID, SubjectGroupID: sg.ID, Date: today, IsPresent: &present}

	tests := []httpTest{
		{
			name: "students cannot record", method: http.MethodPost, path: "/api/attendance", token: getToken(t, student),
			body: marchallObj(t, newAtt), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, newHTTPErr("permission denied")),
		},
		{
			name: "required fields", method: http.MethodPost, path: "/api/attendance", token: teacherToken,
			body: marchallObj(t, map[string]string{"student_id": student.ID}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"subject_group_id": "this field is required",
				"date":             "this field is required",
				"is_present":       "this field is required",
			}),
		},
		{
			name: "attendance recorded", method: http.MethodPost, path: "/api/attendance", token: teacherToken,
			body: marchallObj(t, newAtt), wantCode: http.StatusCreated,
		},
		{
			name: "one record per student per day", method: http.MethodPost, path: "/api/attendance", token: teacherToken,
			body: marchallObj(t, newAtt), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, newHTTPErr("an attendance record for this student on this date already exists")),
		},
		{
			name: "staff query all", method: http.MethodGet, path: "/api/attendance?" + url.Values{"student_id": {rival.ID}}.Encode(),
			token: teacherToken, wantCode: http.StatusOK, wantData: marchallList(t, rivalAtt),
		},
		{
			name: "students see only their own", method: http.MethodGet, path: "/api/attendance?" + url.Values{"student_id": {rival.ID}}.Encode(),
			token: getToken(t, student), wantCode: http.StatusOK, extra: student.ID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if ownerID, ok := tt.extra.(string); ok {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var records []journal.Attendance
				if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if len(records) == 0 {
					t.Fatal("failed! no attendance returned")
				}
				for _, att := range records {
					if att.StudentID != ownerID {
						t.Errorf("failed! got record of student %q; want only %q", att.StudentID, ownerID)
					}
				}
				return
			}
			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("mark absentee present", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/attendance/"+rivalAtt.ID, teacherToken,
			marchallObj(t, journal.UpdateAttendance{IsPresent: &present}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var att journal.Attendance
		if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !att.IsPresent {
			t.Error("failed! record still marked absent")
		}
	})
}

func Test_journalApi_teacherSubjects(t *testing.T) {
	resetDB(t)

	eng := createFaculty(t, "Engineering")
	algo := createSubject(t, "Algorithms", eng.ID)

	student := createUser(t, "hero", "hero@test.cd", "LolC@t123", user.RoleStudent, "", true, true)
	teacher := createUser(t, "teacher", "teacher@test.cd", "LolC@t123", user.RoleTeacher, "", true, true)
	admin := createUser(t, "admin", "admin@test.cd", "LolC@t123", user.RoleAdmin, "", true, true)

	teacherToken := getToken(t, teacher)
	adminToken := getToken(t, admin)

	basePath := "/api/teachers/" + teacher.ID + "/subjects"

	tests := []httpTest{
		{
			name: "students cannot list", method: http.MethodGet, path: basePath, token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, newHTTPErr("permission denied")),
		},
		{
			name: "Admin required to assign", method: http.MethodPost, path: basePath, token: teacherToken,
			body:     marchallObj(t, echoapi.AssignSubjectRequest{SubjectID: algo.ID}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, newHTTPErr("permission denied")),
		},
		{
			name: "not a uuid", method: http.MethodPost, path: basePath, token: adminToken,
			body:     marchallObj(t, echoapi.AssignSubjectRequest{SubjectID: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"subject_id": "subject_id must be a valid version 4 UUID"}),
		},
		{
			name: "subject assigned", method: http.MethodPost, path: basePath, token: adminToken,
			body: marchallObj(t, echoapi.AssignSubjectRequest{SubjectID: algo.ID}), wantCode: http.StatusNoContent,
		},
		{
			name: "assignment listed", method: http.MethodGet, path: basePath, token: teacherToken,
			wantCode: http.StatusOK, wantData: marchallList(t, algo),
		},
		{
			name: "students have no subjects", method: http.MethodGet, path: "/api/teachers/" + student.ID + "/subjects", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, newHTTPErr("not found")),
		},
		{
			name: "subject removed", method: http.MethodDelete, path: basePath + "/" + algo.ID, token: adminToken,
			wantCode: http.StatusNoContent,
		},
		{
			name: "removal listed", method: http.MethodGet, path: basePath, token: teacherToken,
			wantCode: http.StatusOK, wantData: []byte("[]"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_journalApi_journalView(t *testing.T) {
	resetDB(t)

	eng := createFaculty(t, "Engineering")
	se21 := createGroup(t, "SE-21", eng.ID)
	se22 := createGroup(t, "SE-22", eng.ID)
	algo := createSubject(t, "Algorithms", eng.ID)
	dbs := createSubject(t, "Databases", eng.ID)
	sg := createSubjectGroup(t, algo.ID, se21.ID)

	student := createUser(t, "hero", "hero@test.cd", "LolC@t123", user.RoleStudent, se21.ID, true, true)
	rival := createUser(t, "rival", "rival@test.cd", "LolC@t123", user.RoleStudent, se21.ID, true, true)
	outsider := createUser(t, "outsider", "outsider@test.cd", "LolC@t123", user.RoleStudent, se22.ID, true, true)
	teacher := createUser(t, "teacher", "teacher@test.cd", "LolC@t123", user.RoleTeacher, "", true, true)
	admin := createUser(t, "admin", "admin@test.cd", "LolC@t123", user.RoleAdmin, "", true, true)

	if err := jrnSvc.AssignSubjectToTeacher(context.Background(), teacher.ID, algo.ID); err != nil {
		t.Fatalf("AssignSubjectToTeacher(): %v", err)
	}

	date := journal.Today()
	createGrade(t, student.ID, sg.ID, 85, date)
	recordAttendance(t, student.ID, sg.ID, date, true)
	recordAttendance(t, rival.ID, sg.ID, date, false)

	// the journal is addressed by names, the way they appear on the timetable
	path := "/api/journal/Engineering/SE-21/Algorithms"

	t.Run("forbidden for other groups", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, outsider))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, newHTTPErr("permission denied"))}, rec)
	})

	t.Run("forbidden for unassigned teachers", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/journal/Engineering/SE-21/Databases", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, newHTTPErr("permission denied"))}, rec)
	})

	t.Run("unknown faculty", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/journal/Astrology/SE-21/Algorithms", getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, newHTTPErr("not found"))}, rec)
	})

	t.Run("unknown group", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/journal/Engineering/SE-99/Algorithms", getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, newHTTPErr("not found"))}, rec)
	})

	t.Run("unknown subject", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/journal/Engineering/SE-21/Astrology", getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, newHTTPErr("not found"))}, rec)
	})

	checkView := func(t *testing.T, rec []byte) journal.View {
		t.Helper()
		var view journal.View
		if err := json.Unmarshal(rec, &view); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if view.Subject != algo.Name || view.Group != se21.Name || view.Faculty != eng.Name {
			t.Errorf("failed! view header = %q/%q/%q", view.Subject, view.Group, view.Faculty)
		}
		if view.SubjectGroupID != sg.ID {
			t.Errorf("failed! subject_group_id = %q; want %q", view.SubjectGroupID, sg.ID)
		}
		if len(view.Students) != 2 {
			t.Fatalf("failed! len(students) = %d; want 2", len(view.Students))
		}
		if len(view.Dates) != 1 || view.Dates[0] != date.String() {
			t.Fatalf("failed! dates = %v; want [%s]", view.Dates, date)
		}
		if grade := view.Grades[student.ID][date.String()]; grade == nil || *grade != 85 {
			t.Errorf("failed! grade cell = %v; want 85", grade)
		}
		if grade := view.Grades[rival.ID][date.String()]; grade != nil {
			t.Errorf("failed! grade cell = %v; want empty", *grade)
		}
		if mark := view.Attendance[rival.ID][date.String()]; mark == nil || *mark {
			t.Errorf("failed! attendance cell = %v; want absent", mark)
		}
		return view
	}

	t.Run("assigned teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		checkView(t, rec.Body.Bytes())
	})

	t.Run("group student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		checkView(t, rec.Body.Bytes())
	})

	// opening a journal for a subject and group that were never linked
	// creates the link on the fly
	t.Run("links on demand", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/journal/Engineering/SE-21/Databases", getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}

		links, err := jrnSvc.QuerySubjectGroups(context.Background(), &journal.SubjectGroupFilter{SubjectID: dbs.ID, GroupID: se21.ID})
		if err != nil {
			t.Fatalf("QuerySubjectGroups(): %v", err)
		}
		if len(links) != 1 {
			t.Fatalf("failed! len(links) = %d; want 1", len(links))
		}

		var view journal.View
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		// a fresh journal still renders a date column
		if len(view.Dates) != 1 {
			t.Errorf("failed! dates = %v; want today only", view.Dates)
		}
	})
}

func Test_journalApi_deletes(t *testing.T) {
	resetDB(t)

	eng := createFaculty(t, "Engineering")
	se21 := createGroup(t, "SE-21", eng.ID)
	algo := createSubject(t, "Algorithms", eng.ID)
	sg := createSubjectGroup(t, algo.ID, se21.ID)

	student := createUser(t, "hero", "hero@test.cd", "LolC@t123", user.RoleStudent, se21.ID, true, true)
	teacher := createUser(t, "teacher", "teacher@test.cd", "LolC@t123", user.RoleTeacher, "", true, true)
	admin := createUser(t, "admin", "admin@test.cd", "LolC@t123", user.RoleAdmin, "", true, true)

	teacherToken := getToken(t, teacher)
	adminToken := getToken(t, admin)

	grd := createGrade(t, student.ID, sg.ID, 85, journal.Today())
	att := recordAttendance(t, student.ID, sg.ID, journal.Today(), false)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodDelete, path: "/api/faculties/" + eng.ID,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required for faculties", method: http.MethodDelete, path: "/api/faculties/" + eng.ID,
			token: teacherToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, newHTTPErr("permission denied")),
		},
		{
			name: "Admin required for groups", method: http.MethodDelete, path: "/api/groups/" + se21.ID,
			token: teacherToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, newHTTPErr("permission denied")),
		},
		{
			name: "Admin required for subjects", method: http.MethodDelete, path: "/api/subjects/" + algo.ID,
			token: teacherToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, newHTTPErr("permission denied")),
		},
		{
			name: "students cannot delete grades", method: http.MethodDelete, path: "/api/grades/" + grd.ID,
			token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, newHTTPErr("permission denied")),
		},
		{
			name: "unknown grade", method: http.MethodDelete, path: "/api/grades/lol", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, newHTTPErr("not found")),
		},
		{
			name: "unknown faculty", method: http.MethodDelete, path: "/api/faculties/c4ca4238-a0b9-4382-8dcc-509a6f75849b",
			token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, newHTTPErr("not found")),
		},
		{name: "grade deleted", method: http.MethodDelete, path: "/api/grades/" + grd.ID, token: teacherToken, wantCode: http.StatusNoContent},
		{name: "attendance deleted", method: http.MethodDelete, path: "/api/attendance/" + att.ID, token: teacherToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("deleting a link drops its records", func(t *testing.T) {
		grd := createGrade(t, student.ID, sg.ID, 70, journal.Today())

		req, rec := newAuthRequest(http.MethodDelete, "/api/subject-groups/"+sg.ID, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		grades, err := jrnSvc.QueryGrades(context.Background(), &journal.GradeFilter{StudentID: student.ID})
		if err != nil {
			t.Fatalf("QueryGrades(): %v", err)
		}
		for _, g := range grades {
			if g.ID == grd.ID {
				t.Error("failed! grade survived its subject-group")
			}
		}
	})

	t.Run("deleting a faculty drops its groups and subjects", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/faculties/"+eng.ID, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodGet, "/api/groups/"+se21.ID, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, newHTTPErr("not found"))}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/api/subjects/"+algo.ID, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, newHTTPErr("not found"))}, rec)
	})
}

func Test_journalApi_teacherSubjectOverview(t *testing.T) {
	resetDB(t)

	eng := createFaculty(t, "Engineering")
	algo := createSubject(t, "Algorithms", eng.ID)

	teacher := createUser(t, "teacher", "teacher@test.cd", "LolC@t123", user.RoleTeacher, "", true, true)
	admin := createUser(t, "admin", "admin@test.cd", "LolC@t123", user.RoleAdmin, "", true, true)
	adminToken := getToken(t, admin)

	path := "/api/journal/teacher-subjects"

	t.Run("Admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, teacher))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, newHTTPErr("permission denied"))}, rec)
	})

	t.Run("empty", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte("[]")}, rec)
	})

	t.Run("lists assignments", func(t *testing.T) {
		if err := jrnSvc.AssignSubjectToTeacher(context.Background(), teacher.ID, algo.ID); err != nil {
			t.Fatalf("AssignSubjectToTeacher(): %v", err)
		}

		req, rec := newAuthRequest(http.MethodGet, path, adminToken)
		app.ServeHTTP(rec, req)
		want := marchallList(t, journal.TeacherSubject{TeacherID: teacher.ID, SubjectID: algo.ID})
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: want}, rec)
	})
}
