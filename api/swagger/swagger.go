package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EDT API",
        "description": "Occupancy scheduling and conflict detection for school timetables",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Occupancies", "description": "Time-slot bookings and conflict detection"},
        {"name": "Schedules", "description": "Per-resource timetable views"},
        {"name": "ChangeFeed", "description": "Monotonic occupancy modification feed"},
        {"name": "Exports", "description": "Asynchronous timetable exports"},
        {"name": "Calendar", "description": "Tokenized calendar feeds"}
    ],
    "paths": {
        "/subjects/{id}/occupancies": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Timetable of one subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown subject"}
                }
            },
            "post": {
                "tags": ["Occupancies"],
                "summary": "Book a whole-class occupancy for a subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOccupancyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown subject, teacher, or classroom"},
                    "409": {"description": "Conflicting booking", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid assignment"}
                }
            }
        },
        "/subjects/{id}/groups/{number}/occupancies": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Timetable of one group of a subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "number", "in": "path", "required": true, "type": "integer"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown subject or group"}
                }
            },
            "post": {
                "tags": ["Occupancies"],
                "summary": "Book an occupancy for one group of a subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "number", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOccupancyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown subject, teacher, or classroom"},
                    "409": {"description": "Conflicting booking", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid assignment"}
                }
            }
        },
        "/occupancies": {
            "get": {
                "tags": ["Occupancies"],
                "summary": "List occupancies",
                "parameters": [
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "classroomId", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "group", "in": "query", "type": "integer"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/occupancies/daily": {
            "get": {
                "tags": ["Occupancies"],
                "summary": "List occupancies grouped by day",
                "parameters": [
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "classroomId", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "group", "in": "query", "type": "integer"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "perDay", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/occupancies/{id}": {
            "get": {
                "tags": ["Occupancies"],
                "summary": "Get one occupancy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown occupancy"}
                }
            },
            "put": {
                "tags": ["Occupancies"],
                "summary": "Update an occupancy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateOccupancyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown occupancy"},
                    "409": {"description": "Conflicting booking or stale version", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid assignment"}
                }
            },
            "delete": {
                "tags": ["Occupancies"],
                "summary": "Delete an occupancy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Unknown occupancy"}
                }
            }
        },
        "/teachers/{id}/occupancies": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Timetable of one teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown teacher"}
                }
            }
        },
        "/teachers/{id}/service": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Teaching service report of one teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown teacher"}
                }
            }
        },
        "/classrooms/{id}/occupancies": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Timetable of one classroom",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown classroom"}
                }
            }
        },
        "/classes/{id}/occupancies": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Timetable of one class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown class"}
                }
            }
        },
        "/students/{id}/occupancies": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Timetable of one student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown student"}
                }
            }
        },
        "/profile/last-occupancies-modifications": {
            "get": {
                "tags": ["ChangeFeed"],
                "summary": "Occupancy mutations committed since a cursor",
                "parameters": [
                    {"name": "since", "in": "query", "type": "string"},
                    {"name": "afterVersion", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a timetable export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown export resource"}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job"}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export via signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/calendar-tokens": {
            "post": {
                "tags": ["Calendar"],
                "summary": "Mint a long-lived calendar feed token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CalendarTokenRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown resource"}
                }
            }
        },
        "/calendar/occupancies": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Calendar feed resolved from a signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "Occupancy": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "kind": {"type": "string", "enum": ["CM", "TD", "TP", "PROJECT"]},
                "subject_id": {"type": "string"},
                "class_id": {"type": "string"},
                "classroom_id": {"type": "string"},
                "group_number": {"type": "integer"},
                "teacher_ids": {"type": "array", "items": {"type": "string"}},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "version": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "ConflictDetail": {
            "type": "object",
            "properties": {
                "dimension": {"type": "string", "enum": ["teacher", "classroom", "class", "version"]},
                "resource_id": {"type": "string"},
                "blocking_occupancy_id": {"type": "string"}
            }
        },
        "ChangeEntry": {
            "type": "object",
            "properties": {
                "version": {"type": "integer"},
                "occupancy_id": {"type": "string"},
                "operation": {"type": "string", "enum": ["created", "updated", "deleted"]},
                "occurred_at": {"type": "string"},
                "details": {"$ref": "#/definitions/ChangeDetails"}
            }
        },
        "ChangeDetails": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "subject_id": {"type": "string"},
                "class_id": {"type": "string"},
                "group_number": {"type": "integer"},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "previous_start": {"type": "string"},
                "previous_end": {"type": "string"}
            }
        },
        "DaySchedule": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "occupancies": {"type": "array", "items": {"$ref": "#/definitions/Occupancy"}}
            }
        },
        "ServiceReport": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "from": {"type": "string"},
                "to": {"type": "string"},
                "total_hours": {"type": "number"},
                "service_hours": {"type": "number"},
                "by_kind": {"type": "object"}
            }
        },
        "ExportJob": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "params": {"type": "object"},
                "status": {"type": "string", "enum": ["QUEUED", "PROCESSING", "FINISHED", "FAILED"]},
                "progress": {"type": "integer"},
                "result_url": {"type": "string"},
                "error_message": {"type": "string"},
                "created_at": {"type": "string"},
                "finished_at": {"type": "string"}
            }
        },
        "CalendarToken": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_at": {"type": "string"},
                "feed_url": {"type": "string"}
            }
        },
        "CreateOccupancyRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "kind": {"type": "string", "enum": ["CM", "TD", "TP", "PROJECT"]},
                "teacher_ids": {"type": "array", "items": {"type": "string"}},
                "classroom_id": {"type": "string"},
                "start": {"type": "string"},
                "end": {"type": "string"}
            },
            "required": ["teacher_ids", "classroom_id", "start", "end"]
        },
        "UpdateOccupancyRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "kind": {"type": "string", "enum": ["CM", "TD", "TP", "PROJECT"]},
                "group_number": {"type": "integer"},
                "teacher_ids": {"type": "array", "items": {"type": "string"}},
                "classroom_id": {"type": "string"},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "expected_version": {"type": "integer"}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "properties": {
                "scope": {"type": "string", "enum": ["teacher", "classroom", "class"]},
                "resource_id": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "from": {"type": "string"},
                "to": {"type": "string"}
            },
            "required": ["scope", "resource_id", "format"]
        },
        "CalendarTokenRequest": {
            "type": "object",
            "properties": {
                "scope": {"type": "string", "enum": ["teacher", "classroom", "class", "subject", "student"]},
                "resource_id": {"type": "string"},
                "group_number": {"type": "integer"}
            },
            "required": ["scope", "resource_id"]
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
