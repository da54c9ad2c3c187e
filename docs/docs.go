// Package docs holds the Swagger description served at /swagger/*any.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/cart": {
            "get": {
                "tags": ["cart"], "summary": "Current cart", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/shop.CartView"}}}
            },
            "post": {
                "tags": ["cart"], "summary": "Add a product to the cart",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/gateway.addItemRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/shop.CartView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            },
            "delete": {
                "tags": ["cart"], "summary": "Empty the cart", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/shop.CartView"}}}
            }
        },
        "/cart/items/{id}": {
            "put": {
                "tags": ["cart"], "summary": "Set a line's quantity; zero or less removes it",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "description": "cart item id", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/gateway.updateItemRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/shop.CartView"}}}
            },
            "delete": {
                "tags": ["cart"], "summary": "Remove a line from the cart", "produces": ["application/json"],
                "parameters": [{"type": "integer", "description": "cart item id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/shop.CartView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/cart/merge": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["cart"], "summary": "Merge the anonymous session cart into the signed-in user's cart",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.mergeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/checkout": {
            "post": {
                "tags": ["orders"], "summary": "Turn the caller's cart into an order",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/gateway.checkoutRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/orders": {
            "get": {
                "tags": ["orders"], "summary": "Orders of the caller, newest first", "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "order email, required for guests", "name": "email", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Order"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/orders/{id}/audit": {
            "get": {
                "tags": ["orders"], "summary": "Audit trail of an order, newest first", "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "order email, required for guest orders", "name": "email", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/repository.AuditLog"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "tags": ["orders"], "summary": "Order with its frozen lines", "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "order email, required for guest orders", "name": "email", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Order"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/products/{id}/stock": {
            "get": {
                "tags": ["products"], "summary": "Units currently in stock (display only)", "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.stockResponse"}}}
            }
        },
        "/payments/initiate": {
            "post": {
                "tags": ["payments"], "summary": "Start a gateway payment for an order awaiting payment",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/gateway.initiatePaymentRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.initiatePaymentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        },
        "/payments/verify/{reference}": {
            "get": {
                "tags": ["payments"], "summary": "Verify a payment reference and mark its order paid",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "reference", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/gateway.errorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/gateway.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "gateway.addItemRequest": {
            "type": "object", "required": ["product_id"],
            "properties": {"product_id": {"type": "integer"}, "quantity": {"type": "integer"}}
        },
        "gateway.updateItemRequest": {
            "type": "object", "required": ["quantity"],
            "properties": {"quantity": {"type": "integer"}}
        },
        "gateway.checkoutRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "payment_method": {"type": "string"},
                "shipping_details": {"type": "object", "additionalProperties": true}
            }
        },
        "gateway.initiatePaymentRequest": {
            "type": "object", "required": ["order_id"],
            "properties": {"order_id": {"type": "integer"}, "email": {"type": "string"}}
        },
        "gateway.initiatePaymentResponse": {
            "type": "object",
            "properties": {"reference": {"type": "string"}, "access_code": {"type": "string"}, "authorization_url": {"type": "string"}}
        },
        "gateway.mergeResponse": {
            "type": "object",
            "properties": {"merged": {"type": "boolean"}, "moved": {"type": "integer"}, "cart": {"$ref": "#/definitions/shop.CartView"}}
        },
        "gateway.stockResponse": {
            "type": "object",
            "properties": {"product_id": {"type": "integer"}, "available": {"type": "integer"}}
        },
        "gateway.errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "code": {"type": "string"}, "product_id": {"type": "integer"}}
        },
        "shop.LineView": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "product_id": {"type": "integer"},
                "product_name": {"type": "string"},
                "unit_price": {"type": "string"},
                "quantity": {"type": "integer"},
                "subtotal": {"type": "string"}
            }
        },
        "shop.CartView": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/shop.LineView"}},
                "total": {"type": "string"},
                "item_count": {"type": "integer"}
            }
        },
        "repository.AuditLog": {
            "type": "object",
            "properties": {
                "service": {"type": "string"},
                "action": {"type": "string"},
                "entity": {"type": "string"},
                "entity_id": {"type": "string"},
                "data": {"type": "object", "additionalProperties": true},
                "created_at": {"type": "string"}
            }
        },
        "models.OrderItem": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "order_id": {"type": "integer"},
                "product_id": {"type": "integer"},
                "product_name": {"type": "string"},
                "quantity": {"type": "integer"},
                "price": {"type": "string"}
            }
        },
        "models.Order": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "user_id": {"type": "string"},
                "email": {"type": "string"},
                "status": {"type": "string", "enum": ["Pending", "AwaitingPayment", "Paid", "Cancelled"]},
                "shipping_details": {"type": "object", "additionalProperties": true},
                "payment_method": {"type": "string"},
                "payment_reference": {"type": "string"},
                "total_price": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/models.OrderItem"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Cartshop API",
	Description:      "Carts, checkout and payments.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
