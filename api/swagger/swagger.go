package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Routine Scheduling API",
        "description": "Class routine scheduling with conflict detection and substitute allocation",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Routines", "description": "Routine lifecycle"},
        {"name": "Conflicts", "description": "Conflict detection and ledger"},
        {"name": "Substitutes", "description": "Substitute teacher allocation"},
        {"name": "Time Slots", "description": "Weekly time slot catalogue"},
        {"name": "Activity", "description": "Audit trail and notifications"}
    ],
    "paths": {
        "/routines": {
            "get": {
                "tags": ["Routines"],
                "summary": "List routines",
                "parameters": [
                    {"name": "class_id", "in": "query", "type": "string"},
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "room_id", "in": "query", "type": "string"},
                    {"name": "time_slot_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["ACTIVE", "INACTIVE", "CANCELLED"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Routines"],
                "summary": "Create routine",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRoutineRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict", "schema": {"$ref": "#/definitions/ConflictEnvelope"}}
                }
            }
        },
        "/routines/{id}": {
            "get": {
                "tags": ["Routines"],
                "summary": "Get routine",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Routines"],
                "summary": "Update routine",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRoutineRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict", "schema": {"$ref": "#/definitions/ConflictEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Routines"],
                "summary": "Delete routine and its ledger entries",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/routines/status/{status}": {
            "get": {
                "tags": ["Routines"],
                "summary": "List routines by status",
                "parameters": [{"name": "status", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/classes/{classId}/routines": {
            "get": {
                "tags": ["Routines"],
                "summary": "List routines for a class",
                "parameters": [{"name": "classId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/teachers/{teacherId}/routines": {
            "get": {
                "tags": ["Routines"],
                "summary": "List routines for a teacher",
                "parameters": [{"name": "teacherId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/conflicts": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "List unresolved conflicts",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/conflicts/check": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Dry-run conflict detection for a proposed routine",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRoutineRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/conflicts/summary": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "Count unresolved conflicts",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/conflicts/{id}": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "Get conflict",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/conflicts/{id}/status": {
            "patch": {
                "tags": ["Conflicts"],
                "summary": "Acknowledge, resolve or ignore a conflict",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StatusRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/routines/{id}/conflicts": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "List conflicts recorded for a routine",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/substitutes/candidates": {
            "get": {
                "tags": ["Substitutes"],
                "summary": "List eligible substitute teachers",
                "parameters": [
                    {"name": "routineId", "in": "query", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/substitutes": {
            "post": {
                "tags": ["Substitutes"],
                "summary": "Allocate a substitute teacher",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AllocateSubstituteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Teacher already busy", "schema": {"$ref": "#/definitions/ConflictEnvelope"}}
                }
            }
        },
        "/substitutes/{id}": {
            "get": {
                "tags": ["Substitutes"],
                "summary": "Get substitution",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Substitutes"],
                "summary": "Remove substitution",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/substitutes/{id}/status": {
            "patch": {
                "tags": ["Substitutes"],
                "summary": "Complete or cancel a substitution",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StatusRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/routines/{id}/substitutes": {
            "get": {
                "tags": ["Substitutes"],
                "summary": "List substitutions for a routine",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/teachers/{teacherId}/substitutes": {
            "get": {
                "tags": ["Substitutes"],
                "summary": "Substitution history for a teacher",
                "parameters": [{"name": "teacherId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/time-slots": {
            "get": {
                "tags": ["Time Slots"],
                "summary": "List time slots",
                "parameters": [{"name": "day", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Time Slots"],
                "summary": "Create time slot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TimeSlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlapping slot", "schema": {"$ref": "#/definitions/ConflictEnvelope"}}
                }
            }
        },
        "/time-slots/{id}": {
            "get": {
                "tags": ["Time Slots"],
                "summary": "Get time slot",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Time Slots"],
                "summary": "Update time slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TimeSlotRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Time Slots"],
                "summary": "Delete unused time slot",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/audit/{resource}/{id}": {
            "get": {
                "tags": ["Activity"],
                "summary": "Audit history for a resource",
                "parameters": [
                    {"name": "resource", "in": "path", "required": true, "type": "string", "enum": ["routines", "time-slots", "substitutes", "conflicts", "holidays", "exam-periods"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Activity"],
                "summary": "Recent scheduling notifications",
                "parameters": [{"name": "limit", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendar/holidays": {
            "get": {
                "tags": ["Calendar"],
                "summary": "List holidays",
                "parameters": [{"name": "from", "in": "query", "type": "string", "format": "date"}, {"name": "to", "in": "query", "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Calendar"],
                "summary": "Create holiday",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/HolidayRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendar/holidays/{id}": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Get holiday",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Calendar"],
                "summary": "Update holiday",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/HolidayRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Calendar"],
                "summary": "Delete holiday",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/calendar/exam-periods": {
            "get": {
                "tags": ["Calendar"],
                "summary": "List exam periods",
                "parameters": [{"name": "from", "in": "query", "type": "string", "format": "date"}, {"name": "to", "in": "query", "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Calendar"],
                "summary": "Create exam period",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExamPeriodRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendar/exam-periods/{id}": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Get exam period",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Calendar"],
                "summary": "Update exam period",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExamPeriodRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Calendar"],
                "summary": "Delete exam period",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/calendar/days/{date}": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Holidays and exam periods on a date",
                "parameters": [{"name": "date", "in": "path", "required": true, "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/notifications/unread": {
            "get": {
                "tags": ["Activity"],
                "summary": "Unread notifications",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/notifications/unread/count": {
            "get": {
                "tags": ["Activity"],
                "summary": "Unread notification count",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/notifications/{id}/read": {
            "put": {
                "tags": ["Activity"],
                "summary": "Mark notification read",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Read"}}
            }
        },
        "/notifications/{id}": {
            "delete": {
                "tags": ["Activity"],
                "summary": "Delete notification",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Activity"],
                "summary": "Metrics snapshot",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "CreateRoutineRequest": {
            "type": "object",
            "required": ["classId", "teacherId", "subjectId", "lessonId", "timeSlotId", "roomId"],
            "properties": {
                "classId": {"type": "string"},
                "teacherId": {"type": "string"},
                "subjectId": {"type": "string"},
                "lessonId": {"type": "string"},
                "timeSlotId": {"type": "string"},
                "roomId": {"type": "string"},
                "routineType": {"type": "string", "enum": ["REGULAR", "ADDITIONAL", "REMEDIAL"]},
                "status": {"type": "string", "enum": ["ACTIVE", "INACTIVE", "CANCELLED"]}
            }
        },
        "AllocateSubstituteRequest": {
            "type": "object",
            "required": ["routineId", "substituteTeacherId", "date"],
            "properties": {
                "routineId": {"type": "string"},
                "substituteTeacherId": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "reason": {"type": "string"}
            }
        },
        "TimeSlotRequest": {
            "type": "object",
            "required": ["dayOfWeek", "startTime", "endTime"],
            "properties": {
                "dayOfWeek": {"type": "string", "enum": ["MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"]},
                "startTime": {"type": "string", "example": "09:00"},
                "endTime": {"type": "string", "example": "09:45"},
                "label": {"type": "string"}
            }
        },
        "HolidayRequest": {
            "type": "object",
            "required": ["name", "date"],
            "properties": {
                "name": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "description": {"type": "string"},
                "type": {"type": "string", "enum": ["PUBLIC", "INSTITUTIONAL", "RELIGIOUS", "EMERGENCY"]}
            }
        },
        "ExamPeriodRequest": {
            "type": "object",
            "required": ["name", "startDate", "endDate"],
            "properties": {
                "name": {"type": "string"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "description": {"type": "string"},
                "type": {"type": "string", "enum": ["MIDTERM", "FINAL", "SUPPLEMENTARY", "PRACTICAL"]}
            }
        },
        "StatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string"}
            }
        },
        "Conflict": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "routine_id": {"type": "string"},
                "conflicting_routine_id": {"type": "string"},
                "conflict_type": {"type": "string"},
                "severity": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]},
                "status": {"type": "string", "enum": ["DETECTED", "ACKNOWLEDGED", "RESOLVED", "IGNORED"]},
                "description": {"type": "string"},
                "suggested_resolution": {"type": "string"}
            }
        },
        "ConflictReport": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "conflicts": {"type": "array", "items": {"$ref": "#/definitions/Conflict"}},
                "concurrency_violation": {"type": "boolean"}
            }
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
                "status": {"type": "integer"}
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
        },
        "ConflictEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/ConflictReport"},
                "error": {"$ref": "#/definitions/APIError"}
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
