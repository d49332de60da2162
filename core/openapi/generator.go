// Package openapi generates OpenAPI 3.0 specifications from module
// definitions. The spec is derived at runtime, so it always reflects the
// snapshot currently being served.
package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/terahq/tera/core/schema"
)

// Spec represents an OpenAPI 3.0 specification.
type Spec struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
	Tags       []Tag               `json:"tags,omitempty"`
}

// Info provides API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Server represents a server URL.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem contains operations for a path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Patch  *Operation `json:"patch,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
}

// Operation represents an API operation.
type Operation struct {
	Tags        []string            `json:"tags,omitempty"`
	Summary     string              `json:"summary,omitempty"`
	Description string              `json:"description,omitempty"`
	OperationID string              `json:"operationId,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

// Parameter represents an API parameter.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// RequestBody represents a request body.
type RequestBody struct {
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaType `json:"content"`
}

// Response represents an API response.
type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// MediaType represents a media type.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Schema represents a JSON Schema.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Format      string             `json:"format,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
	MinLength   *int               `json:"minLength,omitempty"`
	MaxLength   *int               `json:"maxLength,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Pattern     string             `json:"pattern,omitempty"`
	Default     any                `json:"default,omitempty"`
}

// Components holds reusable schema objects.
type Components struct {
	Schemas map[string]*Schema `json:"schemas,omitempty"`
}

// Tag groups operations by module.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Generator builds a Spec from a module set.
type Generator struct {
	modules map[string]schema.ModuleDefinition
	info    Info
	servers []Server
}

// NewGenerator creates a generator for the given modules.
func NewGenerator(modules map[string]schema.ModuleDefinition) *Generator {
	return &Generator{
		modules: modules,
		info: Info{
			Title:   "Tera Module API",
			Version: "1.0.0",
		},
	}
}

// SetInfo overrides the API metadata.
func (g *Generator) SetInfo(info Info) {
	g.info = info
}

// AddServer adds a server entry.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{URL: url, Description: description})
}

// Generate builds the specification. Output is deterministic: modules,
// actions, and form fields appear in sorted key order.
func (g *Generator) Generate() *Spec {
	spec := &Spec{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Servers: g.servers,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: map[string]*Schema{
				"ActionResult": actionResultSchema(),
			},
		},
	}

	ids := make([]string, 0, len(g.modules))
	for id := range g.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		g.generateModule(spec, g.modules[id])
	}

	return spec
}

func (g *Generator) generateModule(spec *Spec, def schema.ModuleDefinition) {
	spec.Tags = append(spec.Tags, Tag{
		Name:        def.Meta.Name,
		Description: def.Meta.Description,
	})

	formIDs := make([]string, 0, len(def.Forms))
	for id := range def.Forms {
		formIDs = append(formIDs, id)
	}
	sort.Strings(formIDs)
	for _, formID := range formIDs {
		name := componentName(def.ID(), formID)
		spec.Components.Schemas[name] = formSchema(def.Forms[formID])
	}

	actionIDs := make([]string, 0, len(def.Actions))
	for id := range def.Actions {
		actionIDs = append(actionIDs, id)
	}
	sort.Strings(actionIDs)
	for _, actionID := range actionIDs {
		action := def.Actions[actionID]
		if action.Type != schema.ActionAPI || action.Endpoint == "" {
			continue
		}
		g.addActionPath(spec, def, actionID, action)
	}
}

func (g *Generator) addActionPath(spec *Spec, def schema.ModuleDefinition, actionID string, action schema.ActionDefinition) {
	op := &Operation{
		Tags:        []string{def.Meta.Name},
		Summary:     fmt.Sprintf("%s action for %s", actionID, def.Meta.Name),
		OperationID: def.ID() + "_" + actionID,
		Responses: map[string]Response{
			"200": {
				Description: "Action result",
				Content: map[string]MediaType{
					"application/json": {Schema: &Schema{Ref: "#/components/schemas/ActionResult"}},
				},
			},
			"502": {Description: "Backend call failed"},
		},
	}

	if action.RequiresRecordID() {
		op.Parameters = append(op.Parameters, Parameter{
			Name:        "id",
			In:          "path",
			Description: "Record identifier",
			Required:    true,
			Schema:      &Schema{Type: "string"},
		})
	}

	method := strings.ToUpper(action.Method)
	if method != "GET" && method != "DELETE" {
		op.RequestBody = &RequestBody{
			Content: map[string]MediaType{
				"application/json": {Schema: &Schema{Type: "object"}},
			},
		}
	}

	item := spec.Paths[action.Endpoint]
	switch method {
	case "GET":
		item.Get = op
	case "POST":
		item.Post = op
	case "PUT":
		item.Put = op
	case "PATCH":
		item.Patch = op
	case "DELETE":
		item.Delete = op
	default:
		return
	}
	spec.Paths[action.Endpoint] = item
}

func formSchema(form schema.FormDefinition) *Schema {
	s := &Schema{
		Type:        "object",
		Description: form.Title,
		Properties:  make(map[string]*Schema),
	}

	keys := make([]string, 0, len(form.Fields))
	for k := range form.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field := form.Fields[key]
		s.Properties[key] = fieldSchema(field)
		if field.Required && !field.IsComputed() {
			s.Required = append(s.Required, key)
		}
	}
	return s
}

func fieldSchema(field schema.FieldDefinition) *Schema {
	s := &Schema{Description: field.Label}

	switch field.Type {
	case schema.FieldNumber, schema.FieldRating:
		s.Type = "number"
	case schema.FieldDecimal:
		s.Type = "number"
		s.Format = "double"
	case schema.FieldCheckbox:
		s.Type = "boolean"
	case schema.FieldDate:
		s.Type = "string"
		s.Format = "date"
	case schema.FieldDatetime:
		s.Type = "string"
		s.Format = "date-time"
	case schema.FieldEmail:
		s.Type = "string"
		s.Format = "email"
	case schema.FieldFile:
		s.Type = "string"
		s.Format = "binary"
	case schema.FieldTags:
		s.Type = "array"
		s.Items = &Schema{Type: "string"}
	case schema.FieldArray:
		s.Type = "array"
		s.Items = formSchema(schema.FormDefinition{Fields: field.Fields})
	default:
		s.Type = "string"
	}

	if len(field.Options) > 0 {
		for _, opt := range field.Options {
			s.Enum = append(s.Enum, opt.Value)
		}
	}
	if field.Pattern != "" {
		s.Pattern = field.Pattern
	}
	s.Minimum = field.Min
	s.Maximum = field.Max
	if field.MinLength > 0 {
		v := field.MinLength
		s.MinLength = &v
	}
	if field.MaxLength > 0 {
		v := field.MaxLength
		s.MaxLength = &v
	}
	if field.Default != nil {
		s.Default = field.Default
	}

	return s
}

func actionResultSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"success":     {Type: "boolean"},
			"message":     {Type: "string"},
			"data":        {Type: "object"},
			"redirect_to": {Type: "string"},
		},
		Required: []string{"success"},
	}
}

func componentName(moduleID, formID string) string {
	parts := strings.Split(moduleID+"_"+formID, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}

// ToJSON serializes the spec with indentation.
func (spec *Spec) ToJSON() ([]byte, error) {
	return json.MarshalIndent(spec, "", "  ")
}
