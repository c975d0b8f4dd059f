package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Capacity Development Portal API",
        "description": "Matchmaking of capacity development requests with partner offers",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Auth", "description": "Session management"},
        {"name": "Requests", "description": "Capacity development requests and their lifecycle"},
        {"name": "Offers", "description": "Partner offers against requests"},
        {"name": "Notifications", "description": "Subscriptions and attribute preferences"},
        {"name": "Documents", "description": "Attachments on requests and offers"},
        {"name": "Opportunities", "description": "Partner-published opportunities"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for tokens",
                "security": [],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "description": "Presenting a token that was already rotated closes every session of its owner.",
                "security": [],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Token rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Close the current session or all sessions",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LogoutRequest"}}
                ],
                "responses": {"204": {"description": "Closed"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current account",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/statuses": {
            "get": {
                "tags": ["Requests"],
                "summary": "List request statuses",
                "security": [],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List visible requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "comma separated status codes"},
                    {"name": "mine", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/export": {
            "get": {
                "tags": ["Requests"],
                "summary": "Export requests as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "File"}, "403": {"description": "Forbidden"}}
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get request",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Requests"],
                "summary": "Edit request detail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateRequestRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Not editable"}}
            },
            "delete": {
                "tags": ["Requests"],
                "summary": "Delete a draft request",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/requests/{id}/transitions": {
            "post": {
                "tags": ["Requests"],
                "summary": "Move a request to another status",
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Invalid transition or terminal state"},
                    "422": {"description": "Unknown status"}
                }
            }
        },
        "/requests/{id}/offers": {
            "get": {
                "tags": ["Offers"],
                "summary": "List offers on a request",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Offers"],
                "summary": "Make an offer",
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOfferRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Request not open for offers"}}
            }
        },
        "/offers/{id}/accept": {
            "post": {
                "tags": ["Offers"],
                "summary": "Accept an offer",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Already accepted"}}
            }
        },
        "/offers/{id}/reject": {
            "post": {
                "tags": ["Offers"],
                "summary": "Reject an offer",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/offers/{id}/status": {
            "patch": {
                "tags": ["Offers"],
                "summary": "Activate or deactivate an offer",
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangeOfferStatusRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/requests/{id}/subscriptions": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List subscribers of a request",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Notifications"],
                "summary": "Subscribe to request updates",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"201": {"description": "Subscribed"}}
            },
            "delete": {
                "tags": ["Notifications"],
                "summary": "Unsubscribe from request updates",
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "user_id", "in": "query", "type": "integer"}
                ],
                "responses": {"204": {"description": "Unsubscribed"}}
            }
        },
        "/preferences": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List attribute preferences",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Notifications"],
                "summary": "Register an attribute preference",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePreferenceRequest"}}
                ],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/preferences/{id}": {
            "patch": {
                "tags": ["Notifications"],
                "summary": "Toggle email delivery for a preference",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Notifications"],
                "summary": "Remove a preference",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/documents": {
            "get": {
                "tags": ["Documents"],
                "summary": "List documents of a request or offer",
                "parameters": [
                    {"name": "parent_type", "in": "query", "type": "string", "enum": ["request", "offer"], "required": true},
                    {"name": "parent_id", "in": "query", "type": "integer", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Documents"],
                "summary": "Upload a document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "parent_type", "in": "formData", "type": "string", "required": true},
                    {"name": "parent_id", "in": "formData", "type": "integer", "required": true},
                    {"name": "document_type", "in": "formData", "type": "string", "required": true},
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Rejected file"}}
            }
        },
        "/documents/{id}/url": {
            "get": {
                "tags": ["Documents"],
                "summary": "Issue a signed download URL",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/documents/{id}/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download via signed token",
                "security": [],
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired token"}}
            }
        },
        "/documents/{id}": {
            "delete": {
                "tags": ["Documents"],
                "summary": "Delete a document",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/opportunities": {
            "get": {
                "tags": ["Opportunities"],
                "summary": "List opportunities",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "mine", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Opportunities"],
                "summary": "Publish an opportunity",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOpportunityRequest"}}
                ],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/opportunities/{id}": {
            "get": {
                "tags": ["Opportunities"],
                "summary": "Get opportunity",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/opportunities/{id}/status": {
            "patch": {
                "tags": ["Opportunities"],
                "summary": "Moderate an opportunity",
                "parameters": [{"name": "id", "in": "path", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RequestDetail": {
            "type": "object",
            "properties": {
                "identification": {"type": "object"},
                "delivery": {"type": "object"},
                "financial": {"type": "object"},
                "impact": {"type": "object"}
            },
            "required": ["identification"]
        },
        "CreateRequestRequest": {
            "type": "object",
            "properties": {
                "detail": {"$ref": "#/definitions/RequestDetail"},
                "submit": {"type": "boolean"}
            },
            "required": ["detail"]
        },
        "UpdateRequestRequest": {
            "type": "object",
            "properties": {
                "detail": {"$ref": "#/definitions/RequestDetail"}
            },
            "required": ["detail"]
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["draft", "under_review", "validated", "offer_made", "match_made", "in_implementation", "closed", "rejected", "unmatched"]}
            },
            "required": ["status"]
        },
        "CreateOfferRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "partner_info": {"type": "string"},
                "partner_id": {"type": "integer"}
            },
            "required": ["description"]
        },
        "ChangeOfferStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["ACTIVE", "INACTIVE"]}
            },
            "required": ["status"]
        },
        "CreatePreferenceRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "integer"},
                "entity_type": {"type": "string", "enum": ["request", "opportunity"]},
                "attribute_type": {"type": "string"},
                "attribute_value": {"type": "string"},
                "email_notification_enabled": {"type": "boolean"}
            },
            "required": ["entity_type", "attribute_type", "attribute_value"]
        },
        "CreateOpportunityRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "type": {"type": "string"},
                "summary": {"type": "string"},
                "coverage_activity": {"type": "string"},
                "target_audience": {"type": "array", "items": {"type": "string"}},
                "implementation_location": {"type": "string"},
                "url": {"type": "string"},
                "closing_date": {"type": "string", "format": "date"}
            },
            "required": ["title", "type"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "RefreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {"refresh_token": {"type": "string"}}
        },
        "LogoutRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"},
                "all_sessions": {"type": "boolean"}
            }
        },
        "FieldError": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "rule": {"type": "string"},
                "param": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/FieldError"}}
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
