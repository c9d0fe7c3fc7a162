package main

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"IP-DNS-API/log"
)

// specYAML describes the routes of NewRouter and is edited by hand with them.
const specYAML = `openapi: 3.0.3
info:
  title: IP and DNS API
  version: 1.0.0
  description: Reports the caller's IP address and resolves DNS records through the host resolver.
paths:
  /ip:
    get:
      summary: Caller IP address
      operationId: getIP
      responses:
        "200":
          description: Address of the caller as seen by the server.
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/IP"
  /dns:
    get:
      summary: Forward DNS resolution
      operationId: getDNS
      parameters:
        - name: query
          in: query
          required: true
          description: Name to resolve.
          schema:
            type: string
          example: example.com
      responses:
        "200":
          description: Records per type, an empty list when the type has no record or its lookup failed.
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/DNS"
        "400":
          description: The query parameter is missing.
          content:
            application/json:
              schema:
                type: object
components:
  schemas:
    IP:
      type: object
      required:
        - ip
      properties:
        ip:
          type: string
          example: 192.0.2.1
    Records:
      type: array
      items:
        type: string
    DNS:
      type: object
      required:
        - A
        - AAAA
        - ANAME
        - CNAME
        - PTR
      properties:
        A:
          $ref: "#/components/schemas/Records"
        AAAA:
          $ref: "#/components/schemas/Records"
        ANAME:
          $ref: "#/components/schemas/Records"
        CNAME:
          $ref: "#/components/schemas/Records"
        PTR:
          $ref: "#/components/schemas/Records"
`

var swaggerPage = template.Must(template.New("swagger-ui").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>IP and DNS API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui" data-spec="{{.SpecURL}}"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
        window.onload = function () {
            var root = document.getElementById("swagger-ui");
            window.ui = SwaggerUIBundle({ url: root.dataset.spec, dom_id: "#swagger-ui" });
        };
    </script>
</body>
</html>
`))

// loadSpec parses and validates an OpenAPI document. run checks specYAML
// with it before serving the docs routes.
func loadSpec(ctx context.Context, data []byte) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}

	if err = doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}

	return doc, nil
}

func (api *API) handleSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", contentTypeYAML)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(specYAML))
}

func (api *API) handleSwaggerUI(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := swaggerPage.Execute(&buf, struct{ SpecURL string }{SpecURL: baseURL(r) + "/spec.yaml"}); err != nil {
		log.Sugar.Errorf("render swagger-ui error=[%+v]", err)
		w.Header().Set("Content-Type", contentTypeHTML)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// baseURL is the scheme and host the request reached us on.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
