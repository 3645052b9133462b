package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Administration API",
        "description": "Academic periods, structure, curriculum, timetables, accounts and requests.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Periods", "description": "Academic years and semesters"},
        {"name": "Structure", "description": "Departments, courses, year levels and sections"},
        {"name": "Subjects", "description": "Curriculum proposals and review"},
        {"name": "Schedules", "description": "Section timetables and exports"},
        {"name": "Rooms", "description": "Rooms available for scheduling"},
        {"name": "Users", "description": "Role-partitioned accounts"},
        {"name": "Requests", "description": "Requests addressed to program heads"},
        {"name": "Session", "description": "Active academic year and semester"}
    ],
    "paths": {
        "/academic_years": {
            "get": {
                "tags": ["Periods"],
                "summary": "List academic years",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["Active", "Upcoming", "Archived"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Periods"],
                "summary": "Create academic year",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AcademicYearRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate name", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academic_years/{yearId}/activate": {
            "post": {
                "tags": ["Periods"],
                "summary": "Activate academic year, archiving the previously active one",
                "parameters": [{"name": "yearId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/academic_years/{yearId}/archive": {
            "post": {
                "tags": ["Periods"],
                "summary": "Archive academic year and its active descendants",
                "parameters": [{"name": "yearId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/academic_years/{yearId}/semesters": {
            "post": {
                "tags": ["Periods"],
                "summary": "Create semester",
                "parameters": [
                    {"name": "yearId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SemesterRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/academic_years/{yearId}/semesters/{semesterId}/departments": {
            "post": {
                "tags": ["Structure"],
                "summary": "Create department",
                "parameters": [
                    {"name": "yearId", "in": "path", "required": true, "type": "string"},
                    {"name": "semesterId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DepartmentRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/subjects/{subjectId}/review": {
            "post": {
                "tags": ["Subjects"],
                "summary": "Approve or reject a subject",
                "parameters": [
                    {"name": "subjectId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewDecision"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/sections/{sectionId}/schedules": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Add a timetable entry; room and instructor double booking is rejected",
                "parameters": [
                    {"name": "sectionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academic_years/{yearId}/semesters/{semesterId}/departments/{departmentId}/courses/{courseId}/year_levels/{yearLevelId}/sections/{sectionId}/timetable/export": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Render the section timetable and return a signed download link",
                "parameters": [
                    {"name": "sectionId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Download an exported file via signed token",
                "security": [],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms": {
            "post": {
                "tags": ["Rooms"],
                "summary": "Create room",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoomRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/users/{role}/accounts/bulk": {
            "post": {
                "tags": ["Users"],
                "summary": "Create accounts from a CSV or XLSX sheet",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "role", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests": {
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a request to a program head",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/requests/{requestId}/review": {
            "post": {
                "tags": ["Requests"],
                "summary": "Approve or reject a request",
                "parameters": [
                    {"name": "requestId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewDecision"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/session/active": {
            "get": {
                "tags": ["Session"],
                "summary": "Current active academic year and semester",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active academic year", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AcademicYearRequest": {
            "type": "object",
            "properties": {"acadYear": {"type": "string", "example": "S.Y - 2024-2025"}},
            "required": ["acadYear"]
        },
        "SemesterRequest": {
            "type": "object",
            "properties": {
                "semesterName": {"type": "string", "example": "1st Semester"},
                "startDate": {"type": "string", "format": "date-time"},
                "endDate": {"type": "string", "format": "date-time"}
            },
            "required": ["semesterName", "startDate", "endDate"]
        },
        "DepartmentRequest": {
            "type": "object",
            "properties": {"departmentName": {"type": "string"}},
            "required": ["departmentName"]
        },
        "ScheduleRequest": {
            "type": "object",
            "properties": {
                "roomId": {"type": "string"},
                "instructorId": {"type": "string"},
                "subjectCode": {"type": "string"},
                "startTime": {"type": "string", "example": "08:00"},
                "endTime": {"type": "string", "example": "09:30"},
                "monday": {"type": "boolean"},
                "tuesday": {"type": "boolean"},
                "wednesday": {"type": "boolean"},
                "thursday": {"type": "boolean"},
                "friday": {"type": "boolean"},
                "saturday": {"type": "boolean"},
                "sunday": {"type": "boolean"}
            },
            "required": ["roomId", "instructorId", "subjectCode", "startTime", "endTime"]
        },
        "RoomRequest": {
            "type": "object",
            "properties": {"floor": {"type": "string"}, "roomNo": {"type": "string"}},
            "required": ["floor", "roomNo"]
        },
        "SubmitRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "toProgramHeadId": {"type": "string"},
                "reason": {"type": "string"}
            },
            "required": ["type", "toProgramHeadId", "reason"]
        },
        "ReviewDecision": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["Approved", "Rejected"]},
                "note": {"type": "string"}
            },
            "required": ["status"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
