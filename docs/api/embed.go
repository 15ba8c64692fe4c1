// Package apidocs embeds the OpenAPI description of the HTTP API.
package apidocs

import _ "embed"

// OpenAPI is the YAML document served under /swagger/spec.
//
//go:embed openapi.yaml
var OpenAPI []byte
