package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FilmHub API",
        "description": "Film review platform with an edit-request workflow",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Users", "description": "User directory"},
        {"name": "Films", "description": "Film catalogue"},
        {"name": "Reviews", "description": "Review assignment and completion"},
        {"name": "EditRequests", "description": "Review edit-request workflow"},
        {"name": "Exports", "description": "Asynchronous review exports"}
    ],
    "paths": {
        "/users/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/users/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid refresh token"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/users/{userId}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get a user",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Unknown user"}
                }
            }
        },
        "/films": {
            "post": {
                "tags": ["Films"],
                "summary": "Catalogue a new film",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/films/public": {
            "get": {
                "tags": ["Films"],
                "summary": "List public films, paginated",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Page out of range"}
                }
            }
        },
        "/films/private": {
            "get": {
                "tags": ["Films"],
                "summary": "List the caller's private films",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/films/{filmId}": {
            "get": {
                "tags": ["Films"],
                "summary": "Get a film",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Private film of another user"},
                    "404": {"description": "Unknown film"}
                }
            },
            "put": {
                "tags": ["Films"],
                "summary": "Update an owned film",
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Films"],
                "summary": "Delete an owned film",
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/films/public/{filmId}/reviews": {
            "post": {
                "tags": ["Reviews"],
                "summary": "Assign reviewers to a public film",
                "responses": {"204": {"description": "Assigned"}}
            },
            "get": {
                "tags": ["Reviews"],
                "summary": "List a film's reviews, paginated",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/films/public/{filmId}/reviews/{reviewerId}": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Get a single review",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Reviews"],
                "summary": "Complete or update an assigned review",
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Reviews"],
                "summary": "Delete an incomplete review assignment",
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/films/public/{filmId}/reviews/{reviewerId}/editRequests": {
            "post": {
                "tags": ["EditRequests"],
                "summary": "Issue an edit request for a completed review",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Review incomplete or request already pending"}
                }
            },
            "get": {
                "tags": ["EditRequests"],
                "summary": "List edit requests for a review",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "No edit requests"}
                }
            }
        },
        "/films/public/{filmId}/reviews/{reviewerId}/editRequests/{requestId}": {
            "get": {
                "tags": ["EditRequests"],
                "summary": "Get a single edit request",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["EditRequests"],
                "summary": "Approve or reject a pending edit request",
                "responses": {
                    "204": {"description": "Decided"},
                    "409": {"description": "Request expired or already decided"}
                }
            },
            "delete": {
                "tags": ["EditRequests"],
                "summary": "Delete a pending edit request",
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/films/public/reviews/editRequests/received": {
            "get": {
                "tags": ["EditRequests"],
                "summary": "Pending edit requests targeting the caller's films, paginated",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/films/public/reviews/editRequests/sent": {
            "get": {
                "tags": ["EditRequests"],
                "summary": "Edit requests issued by the caller, paginated",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Request an export of a film's reviews",
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/exports/{jobId}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Get export job status",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export artifact",
                "responses": {
                    "200": {"description": "Artifact stream"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "currentPage": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalItems": {"type": "integer"},
                "totalPages": {"type": "integer"},
                "next": {"type": "string"}
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
