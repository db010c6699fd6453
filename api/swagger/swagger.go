package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Gate Pass For Faculty API",
        "description": "Approval workflow for faculty gate passes: submission, admin decisions and the gate allow log",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Account registration and token issuance"},
        {"name": "Faculty", "description": "Leave request submission and tracking"},
        {"name": "Admin", "description": "Decisions, re-opens and exports"},
        {"name": "Viewer", "description": "Gate log and the allow latch"},
        {"name": "Dashboard", "description": "Cached role-scoped counts"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"},
                    "409": {"description": "Email or employee ID already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/faculty/leave-request": {
            "post": {
                "tags": ["Faculty"],
                "summary": "Submit leave request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"},
                    "403": {"description": "Submitter does not match authenticated user"}
                }
            }
        },
        "/faculty/my-requests": {
            "get": {
                "tags": ["Faculty"],
                "summary": "List own requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/pending-requests": {
            "get": {
                "tags": ["Admin"],
                "summary": "List pending requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "faculty_email", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/all-requests": {
            "get": {
                "tags": ["Admin"],
                "summary": "List all requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "faculty_email", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/update-request": {
            "post": {
                "tags": ["Admin"],
                "summary": "Decide a request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid status or transition"},
                    "404": {"description": "Request not found"},
                    "409": {"description": "Request already decided"}
                }
            }
        },
        "/admin/reopen-request": {
            "post": {
                "tags": ["Admin"],
                "summary": "Re-open a decided request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReopenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Request is already pending"},
                    "404": {"description": "Request not found"}
                }
            }
        },
        "/admin/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export the request log",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "faculty_email", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Unknown format"}
                }
            }
        },
        "/viewer/all-requests": {
            "get": {
                "tags": ["Viewer"],
                "summary": "List decided requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "faculty_email", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/viewer/all-allowed": {
            "get": {
                "tags": ["Viewer"],
                "summary": "List allowed requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "faculty_email", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/viewer/mark-allowed/{id}": {
            "put": {
                "tags": ["Viewer"],
                "summary": "Mark request as allowed",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Request still pending"},
                    "404": {"description": "Request not found"}
                }
            }
        },
        "/dashboard/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard summary",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["faculty", "admin", "viewer"]},
                "employee_id": {"type": "string"},
                "designation": {"type": "string"},
                "department": {"type": "string"}
            },
            "required": ["name", "email", "password", "role"]
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "SubmitRequest": {
            "type": "object",
            "properties": {
                "faculty_id": {"type": "string"},
                "date": {"type": "string"},
                "time_out": {"type": "string"},
                "time_in": {"type": "string"},
                "purpose": {"type": "string", "enum": ["Personal", "Official"]},
                "reason": {"type": "string"}
            },
            "required": ["date", "time_out", "time_in", "purpose", "reason"]
        },
        "DecisionRequest": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "status": {"type": "string", "enum": ["approved", "rejected"]}
            },
            "required": ["request_id", "status"]
        },
        "ReopenRequest": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"}
            },
            "required": ["request_id"]
        },
        "GatePassRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "faculty_id": {"type": "string"},
                "faculty_email": {"type": "string"},
                "date": {"type": "string"},
                "time_out": {"type": "string"},
                "time_in": {"type": "string"},
                "purpose": {"type": "string"},
                "reason": {"type": "string"},
                "status": {"type": "string"},
                "allowed": {"type": "boolean"},
                "allowed_by": {"type": "string"},
                "allowed_at": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "StatusCounts": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "pending": {"type": "integer"},
                "approved": {"type": "integer"},
                "rejected": {"type": "integer"}
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
                "pagination": {"type": "object"},
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
