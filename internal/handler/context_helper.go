package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

// Route parameters naming each level of the academic hierarchy.
const (
	paramYear       = "yearId"
	paramSemester   = "semesterId"
	paramDepartment = "departmentId"
	paramCourse     = "courseId"
	paramYearLevel  = "yearLevelId"
	paramSection    = "sectionId"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

// requireClaims writes 401 and returns nil when the route was mounted without JWT.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

// scopeFromParams collects every hierarchy id present on the route.
func scopeFromParams(c *gin.Context) models.Scope {
	return models.Scope{
		AcademicYearID: c.Param(paramYear),
		SemesterID:     c.Param(paramSemester),
		DepartmentID:   c.Param(paramDepartment),
		CourseID:       c.Param(paramCourse),
		YearLevelID:    c.Param(paramYearLevel),
		SectionID:      c.Param(paramSection),
	}
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(fallback))); err == nil {
		return v
	}
	return fallback
}

func profileRole(c *gin.Context) models.UserRole {
	return models.UserRole(c.Param("role"))
}
