package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendance Kiosk API",
        "description": "QR badge attendance and absence list generation",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Operator tokens"},
        {"name": "Attendance", "description": "Scans and the current session"},
        {"name": "Absences", "description": "Absence list generation"},
        {"name": "Capture", "description": "Frame capture loop control"},
        {"name": "Exports", "description": "Signed export downloads"}
    ],
    "paths": {
        "/auth/token": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange the operator passphrase for a token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid passphrase", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scans": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Submit a decoded QR payload",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Presence recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Presence recorded, attendance row not saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No active session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Unreadable payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Current session snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences": {
            "post": {
                "tags": ["Absences"],
                "summary": "Reconcile, export and upload the absence list",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/latest": {
            "get": {
                "tags": ["Absences"],
                "summary": "Latest absence report",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No report yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/capture": {
            "get": {
                "tags": ["Capture"],
                "summary": "Capture loop status",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/capture/start": {
            "post": {
                "tags": ["Capture"],
                "summary": "Start the capture loop",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Started", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/capture/stop": {
            "post": {
                "tags": ["Capture"],
                "summary": "Stop the capture loop",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Stopped", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an absence export",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "TokenRequest": {
            "type": "object",
            "properties": {
                "passphrase": {"type": "string"}
            },
            "required": ["passphrase"]
        },
        "ScanRequest": {
            "type": "object",
            "properties": {
                "payload": {"type": "string", "example": "Nome: John Smith\nSérie: 1A\nCurso: Informática\nNúmero: 12"}
            },
            "required": ["payload"]
        },
        "StudentRecord": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "grade": {"type": "string"},
                "track": {"type": "string"},
                "roll_number": {"type": "string"}
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
