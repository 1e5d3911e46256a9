package echoapi

import (
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mzalendo/daftari/core/journal"
	"github.com/mzalendo/daftari/core/session"
	"github.com/mzalendo/daftari/core/user"
)

type journalApi struct {
	svc      journal.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerJournalAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc journal.Service,
	usrSvc user.Service,
	denylist session.TokenDenylist,
	validate *validator.Validate,
) *journalApi {
	api := &journalApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	authed := []echo.MiddlewareFunc{jwt, denylistMiddleware(denylist)}

	// un-authed endpoints; the registration form needs these to offer
	// faculty and group choices before an account exists
	g.GET("/faculties", api.queryFaculties)
	g.GET("/groups", api.queryGroups)

	fg := g.Group("/faculties", authed...)
	fg.POST("", api.createFaculty, adminMiddleware())
	fg.GET("/:id", api.retrieveFaculty)
	fg.DELETE("/:id", api.deleteFaculty, adminMiddleware())

	gg := g.Group("/groups", authed...)
	gg.POST("", api.createGroup, adminMiddleware())
	gg.GET("/:id", api.retrieveGroup)
	gg.DELETE("/:id", api.deleteGroup, adminMiddleware())

	sg := g.Group("/subjects", authed...)
	sg.GET("", api.querySubjects)
	sg.POST("", api.createSubject, adminMiddleware())
	sg.GET("/:id", api.retrieveSubject)
	sg.DELETE("/:id", api.deleteSubject, adminMiddleware())

	sgg := g.Group("/subject-groups", authed...)
	sgg.GET("", api.querySubjectGroups)
	sgg.POST("", api.createSubjectGroup, adminMiddleware())
	sgg.DELETE("/:id", api.deleteSubjectGroup, adminMiddleware())

	grg := g.Group("/grades", authed...)
	grg.GET("", api.queryGrades)
	grg.POST("", api.createGrade, staffMiddleware())
	grg.PUT("/:id", api.updateGrade, staffMiddleware())
	grg.DELETE("/:id", api.deleteGrade, staffMiddleware())

	att := g.Group("/attendance", authed...)
	att.GET("", api.queryAttendance)
	att.POST("", api.recordAttendance, staffMiddleware())
	att.PUT("/:id", api.updateAttendance, staffMiddleware())
	att.DELETE("/:id", api.deleteAttendance, staffMiddleware())

	tg := g.Group("/teachers/:id/subjects", authed...)
	tg.GET("", api.teacherSubjects, staffMiddleware())
	tg.POST("", api.assignSubject, adminMiddleware())
	tg.DELETE("/:subjectID", api.removeSubject, adminMiddleware())

	jg := g.Group("/journal", authed...)
	jg.GET("/teacher-subjects", api.queryTeacherSubjects, adminMiddleware())
	jg.GET("/:faculty/:group/:subject", api.view)

	return api
}

// Faculties

func (api *journalApi) createFaculty(ctx echo.Context) error {
	var data journal.NewFaculty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFaculty")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fac, err := api.svc.CreateFaculty(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating faculty")
	}
	return ctx.JSON(http.StatusCreated, fac)
}

func (api *journalApi) queryFaculties(ctx echo.Context) error {
	facs, err := api.svc.QueryFaculties(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying faculties")
	}
	if facs == nil {
		facs = []journal.Faculty{}
	}
	return ctx.JSON(http.StatusOK, facs)
}

func (api *journalApi) retrieveFaculty(ctx echo.Context) error {
	fac, err := api.svc.GetFaculty(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == journal.ErrFacultyNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding faculty by ID")
	}
	return ctx.JSON(http.StatusOK, fac)
}

func (api *journalApi) deleteFaculty(ctx echo.Context) error {
	if err := api.svc.DeleteFaculty(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == journal.ErrFacultyNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting faculty")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Groups

func (api *journalApi) createGroup(ctx echo.Context) error {
	var data journal.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.CreateGroup(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *journalApi) queryGroups(ctx echo.Context) error {
	filter := new(journal.GroupFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []journal.Group{})
	}

	groups, err := api.svc.QueryGroups(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if groups == nil {
		groups = []journal.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *journalApi) retrieveGroup(ctx echo.Context) error {
	grp, err := api.svc.GetGroup(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == journal.ErrGroupNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding group by ID")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *journalApi) deleteGroup(ctx echo.Context) error {
	if err := api.svc.DeleteGroup(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == journal.ErrGroupNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subjects

func (api *journalApi) createSubject(ctx echo.Context) error {
	var data journal.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *journalApi) querySubjects(ctx echo.Context) error {
	filter := new(journal.SubjectFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []journal.Subject{})
	}

	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []journal.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *journalApi) retrieveSubject(ctx echo.Context) error {
	sub, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == journal.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding subject by ID")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *journalApi) deleteSubject(ctx echo.Context) error {
	if err := api.svc.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == journal.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subject-Group links

func (api *journalApi) createSubjectGroup(ctx echo.Context) error {
	var data journal.NewSubjectGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubjectGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	link, err := api.svc.CreateSubjectGroup(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject-group link")
	}
	return ctx.JSON(http.StatusCreated, link)
}

func (api *journalApi) querySubjectGroups(ctx echo.Context) error {
	filter := new(journal.SubjectGroupFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []journal.SubjectGroup{})
	}

	links, err := api.svc.QuerySubjectGroups(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying subject-group links")
	}
	if links == nil {
		links = []journal.SubjectGroup{}
	}
	return ctx.JSON(http.StatusOK, links)
}

func (api *journalApi) deleteSubjectGroup(ctx echo.Context) error {
	if err := api.svc.DeleteSubjectGroup(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == journal.ErrSubjectGroupNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting subject-group link")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Grades

func (api *journalApi) createGrade(ctx echo.Context) error {
	var data journal.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grd, err := api.svc.CreateGrade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grd)
}

func (api *journalApi) queryGrades(ctx echo.Context) error {
	filter := new(journal.GradeFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []journal.Grade{})
	}

	// students only ever see their own grades
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsStudent {
		filter.StudentID = claims.Subject
	}

	grades, err := api.svc.QueryGrades(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []journal.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *journalApi) updateGrade(ctx echo.Context) error {
	var data journal.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grd, err := api.svc.UpdateGrade(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == journal.ErrGradeNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *journalApi) deleteGrade(ctx echo.Context) error {
	if err := api.svc.DeleteGrade(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == journal.ErrGradeNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Attendance

func (api *journalApi) recordAttendance(ctx echo.Context) error {
	var data journal.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	att, err := api.svc.RecordAttendance(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *journalApi) queryAttendance(ctx echo.Context) error {
	filter := new(journal.AttendanceFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []journal.Attendance{})
	}

	// students only ever see their own attendance
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsStudent {
		filter.StudentID = claims.Subject
	}

	records, err := api.svc.QueryAttendance(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []journal.Attendance{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *journalApi) updateAttendance(ctx echo.Context) error {
	var data journal.UpdateAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendance")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	att, err := api.svc.UpdateAttendance(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == journal.ErrAttendanceNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *journalApi) deleteAttendance(ctx echo.Context) error {
	if err := api.svc.DeleteAttendance(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == journal.ErrAttendanceNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting attendance record")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Teacher subjects

func (api *journalApi) teacherSubjects(ctx echo.Context) error {
	subjects, err := api.svc.TeacherSubjects(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == journal.ErrTeacherNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying teacher subjects")
	}
	if subjects == nil {
		subjects = []journal.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *journalApi) assignSubject(ctx echo.Context) error {
	var data AssignSubjectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignSubjectRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	if err := api.svc.AssignSubjectToTeacher(ctx.Request().Context(), ctx.Param("id"), data.SubjectID); err != nil {
		return errors.Wrap(err, "assigning subject to teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *journalApi) removeSubject(ctx echo.Context) error {
	if err := api.svc.RemoveSubjectFromTeacher(ctx.Request().Context(), ctx.Param("id"), ctx.Param("subjectID")); err != nil {
		return errors.Wrap(err, "removing subject from teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *journalApi) queryTeacherSubjects(ctx echo.Context) error {
	links, err := api.svc.QueryTeacherSubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teacher-subject links")
	}
	if links == nil {
		links = []journal.TeacherSubject{}
	}
	return ctx.JSON(http.StatusOK, links)
}

// Journal view

// viewPathParam reads a path segment addressing entities by name.
func viewPathParam(ctx echo.Context, name string) string {
	val, err := url.PathUnescape(ctx.Param(name))
	if err != nil {
		return ctx.Param(name)
	}
	return val
}

func (api *journalApi) view(ctx echo.Context) error {
	rc := ctx.Request().Context()

	// faculty, group and subject are addressed by name; group and subject
	// names are only unique within their faculty
	fac, err := api.svc.GetFacultyByName(rc, viewPathParam(ctx, "faculty"))
	if err != nil {
		if errors.Cause(err) == journal.ErrFacultyNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding faculty by name")
	}
	grp, err := api.svc.GetGroupByName(rc, viewPathParam(ctx, "group"), fac.ID)
	if err != nil {
		if errors.Cause(err) == journal.ErrGroupNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding group by name")
	}
	sub, err := api.svc.GetSubjectByName(rc, viewPathParam(ctx, "subject"), fac.ID)
	if err != nil {
		if errors.Cause(err) == journal.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding subject by name")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	switch {
	case claims.IsAdmin:
	case claims.IsTeacher:
		// teachers only open journals of subjects assigned to them
		subjects, err := api.svc.TeacherSubjects(rc, claims.Subject)
		if err != nil {
			return errors.Wrap(err, "querying teacher subjects")
		}
		var taught bool
		for _, s := range subjects {
			if s.ID == sub.ID {
				taught = true
				break
			}
		}
		if !taught {
			return errHttpForbidden
		}
	case claims.IsStudent:
		// students only open their own group's journals
		usr, err := getContextUser(ctx, api.usrSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if usr.GroupID != grp.ID {
			return errHttpForbidden
		}
	default:
		return errHttpForbidden
	}

	view, err := api.svc.JournalView(rc, sub.ID, grp.ID)
	if err != nil {
		switch errors.Cause(err) {
		case journal.ErrSubjectNotFound, journal.ErrGroupNotFound:
			return errHttpNotFound
		}
		return errors.Wrap(err, "building journal view")
	}
	return ctx.JSON(http.StatusOK, view)
}

type AssignSubjectRequest struct {
	SubjectID string `json:"subject_id" validate:"required,uuid4"`
}
