package swagger

import _ "embed"

// OpenAPI is the service contract served at /openapi.yaml. It is
// embedded so the binary documents itself without any deploy step.
//
//go:embed openapi.yaml
var OpenAPI []byte
