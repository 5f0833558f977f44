// Package docs serves the OpenAPI description of the API together with the
// Swagger UI and ReDoc viewers bound to it.
package docs
