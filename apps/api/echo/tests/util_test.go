package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	. "github.com/mzalendo/daftari/apps/api/echo"
	"github.com/mzalendo/daftari/core/journal"
	"github.com/mzalendo/daftari/core/user"
)

type httpErr struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func newHTTPErr(msg string) httpErr {
	return httpErr{Error: msg, Detail: msg}
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func createUser(t *testing.T, uname, email, pwd, role, groupID string, active, verified bool) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Username:   uname,
		Email:      email,
		FullName:   uname,
		Role:       role,
		GroupID:    groupID,
		IsActive:   active,
		IsVerified: verified,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func createFaculty(t *testing.T, name string) journal.Faculty {
	t.Helper()
	fac, err := jrnSvc.CreateFaculty(context.Background(), journal.NewFaculty{Name: name})
	if err != nil {
		t.Fatalf("CreateFaculty(): %v", err)
	}
	return fac
}

func createGroup(t *testing.T, name, facultyID string) journal.Group {
	t.Helper()
	grp, err := jrnSvc.CreateGroup(context.Background(), journal.NewGroup{Name: name, FacultyID: facultyID})
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}
	return grp
}

func createSubject(t *testing.T, name, facultyID string) journal.Subject {
	t.Helper()
	sub, err := jrnSvc.CreateSubject(context.Background(), journal.NewSubject{Name: name, FacultyID: facultyID})
	if err != nil {
		t.Fatalf("CreateSubject(): %v", err)
	}
	return sub
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
