// Package openapi generates the OpenAPI 3 document served at /openapi.json.
// Schemas are produced reflectively from the wire structs so the document
// cannot drift from the code.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/nestling/nestling/internal/core/domain"
	"github.com/nestling/nestling/internal/shell/chat"
)

// =============================================================================
// Generator
// =============================================================================

// Generator builds and caches the service's OpenAPI specification.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string

	mu     sync.Mutex
	cached []byte
}

// Option configures the generator.
type Option func(*Generator)

// WithServer adds a server URL. Empty URLs are ignored.
func WithServer(url string) Option {
	return func(g *Generator) {
		if url != "" {
			g.servers = append(g.servers, url)
		}
	}
}

// WithVersion sets the advertised API version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		g.version = version
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "nestling chat API",
		version:     "1.0.0",
		description: "Baby care chat API with real-time activity log context.",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ServeHTTP writes the JSON specification.
func (g *Generator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	if g.cached == nil {
		doc := g.build()
		data, err := json.Marshal(doc)
		if err != nil {
			g.mu.Unlock()
			http.Error(w, "failed to render specification", http.StatusInternalServerError)
			return
		}
		g.cached = data
	}
	data := g.cached
	g.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// =============================================================================
// Document Assembly
// =============================================================================

func (g *Generator) build() *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
			SecuritySchemes: openapi3.SecuritySchemes{
				"bearerAuth": &openapi3.SecuritySchemeRef{
					Value: openapi3.NewSecurityScheme().
						WithType("http").
						WithScheme("bearer"),
				},
			},
		},
	}
	for _, url := range g.servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: url})
	}

	chatReq := g.register(doc, "ChatRequest", reflect.TypeOf(chat.Request{}))
	chatResp := g.register(doc, "ChatResponse", reflect.TypeOf(chat.Response{}))
	message := g.register(doc, "ChatMessage", reflect.TypeOf(domain.ChatMessage{}))

	secured := openapi3.SecurityRequirements{{"bearerAuth": []string{}}}

	chatOp := openapi3.NewOperation()
	chatOp.Summary = "Answer one chat turn"
	chatOp.Description = "Grounds the answer in the baby's recent activity logs when available."
	chatOp.Security = &secured
	chatOp.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(chatReq),
	}
	chatOp.AddResponse(http.StatusOK, openapi3.NewResponse().
		WithDescription("The model's answer and the session id").
		WithJSONSchemaRef(chatResp))
	chatOp.AddResponse(http.StatusUnauthorized, openapi3.NewResponse().
		WithDescription("Missing or invalid bearer token"))
	chatOp.AddResponse(http.StatusUnprocessableEntity, openapi3.NewResponse().
		WithDescription("Empty question"))
	doc.Paths.Set("/api/v1/chat", &openapi3.PathItem{Post: chatOp})

	messagesSchema := openapi3.NewObjectSchema().
		WithProperty("session_id", openapi3.NewStringSchema())
	messagesSchema.Properties["messages"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: message,
		},
	}

	historyOp := openapi3.NewOperation()
	historyOp.Summary = "List stored messages for a session"
	historyOp.Security = &secured
	historyOp.AddParameter(openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema()))
	historyOp.AddResponse(http.StatusOK, openapi3.NewResponse().
		WithDescription("Stored messages in insertion order").
		WithJSONSchema(messagesSchema))
	doc.Paths.Set("/api/v1/sessions/{id}/messages", &openapi3.PathItem{Get: historyOp})

	healthOp := openapi3.NewOperation()
	healthOp.Summary = "Liveness probe"
	healthOp.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Service is alive"))
	doc.Paths.Set("/health", &openapi3.PathItem{Get: healthOp})

	readyOp := openapi3.NewOperation()
	readyOp.Summary = "Readiness probe"
	readyOp.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Dependencies respond"))
	readyOp.AddResponse(http.StatusServiceUnavailable, openapi3.NewResponse().WithDescription("A dependency is down"))
	doc.Paths.Set("/ready", &openapi3.PathItem{Get: readyOp})

	return doc
}

// register adds a named component schema and returns a reference to it.
func (g *Generator) register(doc *openapi3.T, name string, t reflect.Type) *openapi3.SchemaRef {
	doc.Components.Schemas[name] = &openapi3.SchemaRef{Value: schemaFor(t)}
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
}

// =============================================================================
// Reflective Schemas
// =============================================================================

var timeType = reflect.TypeOf(time.Time{})

// schemaFor derives an OpenAPI schema from a Go type.
func schemaFor(t reflect.Type) *openapi3.Schema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == timeType {
		return openapi3.NewDateTimeSchema()
	}

	switch t.Kind() {
	case reflect.String:
		return openapi3.NewStringSchema()
	case reflect.Bool:
		return openapi3.NewBoolSchema()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return openapi3.NewIntegerSchema()
	case reflect.Float32, reflect.Float64:
		return openapi3.NewFloat64Schema()
	case reflect.Slice, reflect.Array:
		// []byte (json.RawMessage) marshals as a string or inline object,
		// not an array of integers.
		if t.Elem().Kind() == reflect.Uint8 {
			return openapi3.NewObjectSchema()
		}
		schema := &openapi3.Schema{Type: &openapi3.Types{"array"}}
		schema.Items = &openapi3.SchemaRef{Value: schemaFor(t.Elem())}
		return schema
	case reflect.Map:
		return openapi3.NewObjectSchema()
	case reflect.Struct:
		return structSchema(t)
	default:
		return openapi3.NewObjectSchema()
	}
}

func structSchema(t reflect.Type) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omit := jsonName(field)
		if name == "" {
			continue
		}

		schema.Properties[name] = &openapi3.SchemaRef{Value: schemaFor(field.Type)}
		if !omit {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}

// jsonName returns the wire name of a field and whether it is optional.
// Fields tagged "-" return an empty name.
func jsonName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		name = field.Name
	}
	omit := false
	for _, p := range parts[1:] {
		if p == "omitempty" {
			omit = true
		}
	}
	return name, omit
}
