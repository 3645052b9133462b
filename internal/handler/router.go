package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
)

// Handlers groups every HTTP handler mounted by Register.
type Handlers struct {
	Periods       *PeriodHandler
	Structure     *StructureHandler
	Subjects      *SubjectHandler
	Rooms         *RoomHandler
	Schedules     *ScheduleHandler
	Exports       *ExportHandler
	Users         *UserHandler
	Requests      *RequestHandler
	Notifications *NotificationHandler
	Session       *SessionHandler
	Live          *LiveHandler
	Metrics       *MetricsHandler
}

// Register mounts the API under prefix. Routes mirror the resource paths
// (academic_years/{id}/semesters/{id}/...), so a record's path names its URL.
func Register(r *gin.Engine, prefix string, h Handlers, auth middleware.TokenValidator, auditLog *zap.Logger) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/exports/:token", h.Exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))

	admin := middleware.RequireRoles(models.RoleAdmin)
	registrar := middleware.RequireRoles(models.RoleAdmin, models.RoleAcademicHead)
	curriculum := middleware.RequireRoles(models.RoleAdmin, models.RoleProgramHead)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleAcademicHead, models.RoleProgramHead)

	secured.GET("/session/active", middleware.WithResponseMeta(), h.Session.Active)
	secured.GET("/live", h.Live.Subscribe)

	years := secured.Group("/academic_years", middleware.Audit(auditLog, "periods"))
	years.GET("", h.Periods.ListAcademicYears)
	years.POST("", admin, h.Periods.CreateAcademicYear)
	years.GET("/:yearId", h.Periods.GetAcademicYear)
	years.PUT("/:yearId", admin, h.Periods.UpdateAcademicYear)
	years.DELETE("/:yearId", admin, h.Periods.DeleteAcademicYear)
	years.POST("/:yearId/activate", admin, h.Periods.ActivateAcademicYear)
	years.POST("/:yearId/archive", admin, h.Periods.ArchiveAcademicYear)

	semesters := years.Group("/:yearId/semesters")
	semesters.GET("", h.Periods.ListSemesters)
	semesters.POST("", admin, h.Periods.CreateSemester)
	semesters.GET("/:semesterId", h.Periods.GetSemester)
	semesters.PUT("/:semesterId", admin, h.Periods.UpdateSemester)
	semesters.DELETE("/:semesterId", admin, h.Periods.DeleteSemester)
	semesters.POST("/:semesterId/activate", admin, h.Periods.ActivateSemester)
	semesters.POST("/:semesterId/archive", admin, h.Periods.ArchiveSemester)
	semesters.GET("/:semesterId/instructors/:instructorId/schedules", h.Schedules.ListByInstructor)

	departments := semesters.Group("/:semesterId/departments", middleware.Audit(auditLog, "structure"))
	departments.GET("", h.Structure.ListDepartments)
	departments.POST("", registrar, h.Structure.CreateDepartment)
	departments.GET("/:departmentId", h.Structure.GetDepartment)
	departments.PUT("/:departmentId", registrar, h.Structure.UpdateDepartment)
	departments.DELETE("/:departmentId", registrar, h.Structure.DeleteDepartment)

	courses := departments.Group("/:departmentId/courses")
	courses.GET("", h.Structure.ListCourses)
	courses.POST("", registrar, h.Structure.CreateCourse)
	courses.GET("/:courseId", h.Structure.GetCourse)
	courses.PUT("/:courseId", registrar, h.Structure.UpdateCourse)
	courses.DELETE("/:courseId", registrar, h.Structure.DeleteCourse)

	levels := courses.Group("/:courseId/year_levels")
	levels.GET("", h.Structure.ListYearLevels)
	levels.POST("", registrar, h.Structure.CreateYearLevel)
	levels.GET("/:yearLevelId", h.Structure.GetYearLevel)
	levels.PUT("/:yearLevelId", registrar, h.Structure.UpdateYearLevel)
	levels.DELETE("/:yearLevelId", registrar, h.Structure.DeleteYearLevel)

	subjects := levels.Group("/:yearLevelId/subjects", middleware.Audit(auditLog, "subjects"))
	subjects.GET("", h.Subjects.List)
	subjects.POST("", curriculum, h.Subjects.Create)
	subjects.GET("/:subjectId", h.Subjects.Get)
	subjects.PUT("/:subjectId", curriculum, h.Subjects.Update)
	subjects.DELETE("/:subjectId", curriculum, h.Subjects.Delete)
	subjects.POST("/:subjectId/review", middleware.RequireRoles(models.RoleAcademicHead), h.Subjects.Review)

	sections := levels.Group("/:yearLevelId/sections")
	sections.GET("", h.Structure.ListSections)
	sections.POST("", registrar, h.Structure.CreateSection)
	sections.GET("/:sectionId", h.Structure.GetSection)
	sections.PUT("/:sectionId", registrar, h.Structure.UpdateSection)
	sections.DELETE("/:sectionId", registrar, h.Structure.DeleteSection)
	sections.POST("/:sectionId/timetable/export", h.Schedules.Export)

	schedules := sections.Group("/:sectionId/schedules", middleware.Audit(auditLog, "schedules"))
	schedules.GET("", h.Schedules.List)
	schedules.POST("", curriculum, h.Schedules.Create)
	schedules.GET("/:scheduleId", h.Schedules.Get)
	schedules.PUT("/:scheduleId", curriculum, h.Schedules.Update)
	schedules.DELETE("/:scheduleId", curriculum, h.Schedules.Delete)

	rooms := secured.Group("/rooms", middleware.Audit(auditLog, "rooms"))
	rooms.GET("", h.Rooms.List)
	rooms.POST("", admin, h.Rooms.Create)
	rooms.GET("/:roomId", h.Rooms.Get)
	rooms.PUT("/:roomId", admin, h.Rooms.Update)
	rooms.DELETE("/:roomId", admin, h.Rooms.Delete)

	adminOrSelf := middleware.RBAC(string(models.RoleAdmin), middleware.Self)
	accounts := secured.Group("/users/:role/accounts", middleware.Audit(auditLog, "users"))
	accounts.GET("", staff, h.Users.List)
	accounts.POST("", admin, h.Users.Create)
	accounts.POST("/bulk", admin, h.Users.BulkUpload)
	accounts.GET("/:id", adminOrSelf, h.Users.Get)
	accounts.PUT("/:id", adminOrSelf, h.Users.Update)
	accounts.DELETE("/:id", admin, h.Users.Delete)
	accounts.POST("/:id/face", adminOrSelf, h.Users.EnrollFace)

	requests := secured.Group("/requests", middleware.Audit(auditLog, "requests"))
	requests.GET("", h.Requests.List)
	requests.POST("", h.Requests.Submit)
	requests.GET("/:requestId", h.Requests.Get)
	requests.POST("/:requestId/attachment", h.Requests.Attach)
	requests.GET("/:requestId/attachment", h.Requests.Attachment)
	requests.POST("/:requestId/review", middleware.RequireRoles(models.RoleProgramHead), h.Requests.Review)
	secured.GET("/inbox/history", middleware.RequireRoles(models.RoleProgramHead), h.Requests.InboxHistory)

	notifications := secured.Group("/notifications")
	notifications.GET("", h.Notifications.List)
	notifications.POST("/read", h.Notifications.MarkAllRead)
	notifications.POST("/:notificationId/read", h.Notifications.MarkRead)

	ops := secured.Group("/admin", admin)
	ops.GET("/metrics", h.Metrics.Summary)
	ops.GET("/invariants", h.Metrics.Audit)
}
