package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Library Catalog API",
        "description": "Catalog, session authentication and checkout ledger for the school library",
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
        {"name": "Authentication", "description": "Registration, login and sessions"},
        {"name": "Books", "description": "Catalog and checkout/return"},
        {"name": "Rentals", "description": "Staff view of the checkout ledger"},
        {"name": "Users", "description": "Account administration"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register account",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "400": {"description": "Missing fields, bad keyword or duplicate", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "400": {"description": "Missing fields", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "429": {"description": "Too many failed attempts", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/auth/validate": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Validate session",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SessionTokenRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "401": {"description": "Invalid or expired session", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SessionTokenRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "401": {"description": "Session token missing", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/books": {
            "get": {
                "tags": ["Books"],
                "summary": "List books",
                "responses": {
                    "200": {"description": "OK", "headers": {"X-Cache": {"type": "string", "description": "HIT or MISS"}}, "schema": {"type": "array", "items": {"$ref": "#/definitions/BookListItem"}}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "post": {
                "tags": ["Books"],
                "summary": "Add book",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateBookRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "400": {"description": "Title or author missing", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/books/{id}": {
            "get": {
                "tags": ["Books"],
                "summary": "Get book",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/BookListItem"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/books/{id}/checkout": {
            "post": {
                "tags": ["Books"],
                "summary": "Check out book",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "400": {"description": "Already checked out", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Only students borrow", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Book not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/books/{id}/return": {
            "post": {
                "tags": ["Books"],
                "summary": "Return book",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Not the borrower", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "No active checkout", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/books/import-sheets": {
            "post": {
                "tags": ["Books"],
                "summary": "Import books from Google Sheets",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ImportSheetsRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Staff only", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "502": {"description": "Sheets API failure", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/rentals": {
            "get": {
                "tags": ["Rentals"],
                "summary": "List rentals",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/RentalDetail"}}},
                    "403": {"description": "Staff only", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/rentals/export": {
            "get": {
                "tags": ["Rentals"],
                "summary": "Export rentals",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Staff only", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "pageSize", "type": "integer"},
                    {"in": "query", "name": "userType", "type": "string", "enum": ["student", "staff", "admin"]},
                    {"in": "query", "name": "active", "type": "boolean"},
                    {"in": "query", "name": "search", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}},
                    "403": {"description": "Admin only", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["userType", "name", "email", "password"],
            "properties": {
                "userType": {"type": "string", "enum": ["student", "staff", "admin"]},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "studentId": {"type": "string"},
                "parentEmail": {"type": "string"},
                "department": {"type": "string"},
                "role": {"type": "string"},
                "adminKeyword": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "SessionTokenRequest": {
            "type": "object",
            "properties": {
                "sessionToken": {"type": "string"}
            }
        },
        "CreateBookRequest": {
            "type": "object",
            "required": ["title", "author"],
            "properties": {
                "title": {"type": "string"},
                "author": {"type": "string"},
                "genre": {"type": "string"},
                "isbn": {"type": "string"}
            }
        },
        "ImportSheetsRequest": {
            "type": "object",
            "required": ["spreadsheetId"],
            "properties": {
                "spreadsheetId": {"type": "string"},
                "sheetName": {"type": "string"},
                "apiKey": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
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
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "error": {"$ref": "#/definitions/APIError"}
            }
        },
        "MessageResponse": {
            "type": "object",
            "description": "message plus the named payload fields (user, sessionToken, expiresAt, book, checkout, users, pagination, imported, skipped, errors)",
            "properties": {
                "message": {"type": "string"}
            },
            "additionalProperties": true
        },
        "BookListItem": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "author": {"type": "string"},
                "genre": {"type": "string"},
                "isbn": {"type": "string"},
                "availabilityStatus": {"type": "string", "enum": ["available", "checked_out"]},
                "checkout": {"type": "object"}
            }
        },
        "RentalDetail": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "bookId": {"type": "integer"},
                "userId": {"type": "integer"},
                "checkoutDate": {"type": "string"},
                "dueDate": {"type": "string"},
                "returnDate": {"type": "string"},
                "status": {"type": "string"},
                "borrowerName": {"type": "string"},
                "borrowerEmail": {"type": "string"},
                "bookTitle": {"type": "string"},
                "bookAuthor": {"type": "string"}
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
