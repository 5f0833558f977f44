package docs

import (
	"github.com/markdown-dms/backend/config"
)

const (
	OpenAPIVersion = "3.1.0"
	JSONPath       = "/openapi.json"
	YAMLPath       = "/openapi.yaml"

	description = "A collaborative web application for editing markdown documents with git integration"
)

type object = map[string]any

func jsonResponse(description, schemaRef string) object {
	return object{
		"description": description,
		"content": object{
			"application/json": object{
				"schema": object{"$ref": "#/components/schemas/" + schemaRef},
			},
		},
	}
}

func getOperation(tag, summary, operationID string, responses object) object {
	return object{
		"get": object{
			"tags":        []string{tag},
			"summary":     summary,
			"operationId": operationID,
			"responses":   responses,
		},
	}
}

func stringProp(extra ...string) object {
	prop := object{"type": "string"}
	if len(extra) > 0 {
		prop["enum"] = extra
	}
	return prop
}

// Document builds the OpenAPI description for cfg.
func Document(cfg *config.Config) map[string]any {
	statuses := []string{"healthy", "degraded", "unhealthy"}
	checkStatuses := []string{"healthy", "unhealthy", "not_implemented"}

	return object{
		"openapi": OpenAPIVersion,
		"info": object{
			"title":       cfg.App.Name,
			"version":     cfg.App.Version,
			"description": description,
		},
		"paths": object{
			"/": getOperation("service", "Service information", "root",
				object{"200": jsonResponse("Service banner", "RootResponse")}),
			"/health": getOperation("health", "Liveness check", "health",
				object{"200": jsonResponse("Process is alive", "HealthResponse")}),
			"/api/health": getOperation("health", "Dependency health check", "detailedHealth",
				object{"200": jsonResponse("Aggregated dependency status", "DetailedHealthResponse")}),
			"/metrics": getOperation("operations", "Request and probe metrics", "metrics",
				object{"200": object{"description": "Metrics snapshot"}}),
		},
		"components": object{
			"schemas": object{
				"RootResponse": object{
					"type":     "object",
					"required": []string{"message", "version", "status", "docs_url", "redoc_url"},
					"properties": object{
						"message":   stringProp(),
						"version":   stringProp(),
						"status":    stringProp("running"),
						"docs_url":  stringProp(),
						"redoc_url": stringProp(),
					},
				},
				"HealthResponse": object{
					"type":     "object",
					"required": []string{"status", "application", "version", "environment", "timestamp"},
					"properties": object{
						"status":      stringProp("healthy"),
						"application": stringProp(),
						"version":     stringProp(),
						"environment": stringProp(),
						"timestamp":   object{"type": "string", "format": "date-time"},
					},
				},
				"DetailedHealthResponse": object{
					"type":     "object",
					"required": []string{"status", "checks", "version", "environment", "timestamp"},
					"properties": object{
						"status": stringProp(statuses...),
						"checks": object{
							"type": "object",
							"properties": object{
								"database":    stringProp(checkStatuses...),
								"redis":       stringProp(checkStatuses...),
								"git_service": stringProp(checkStatuses...),
							},
						},
						"version":     stringProp(),
						"environment": stringProp(),
						"timestamp":   object{"type": "string", "format": "date-time"},
					},
				},
				"ErrorResponse": object{
					"type":       "object",
					"required":   []string{"detail"},
					"properties": object{"detail": stringProp()},
				},
			},
		},
	}
}
