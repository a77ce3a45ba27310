// Package protocol implements the JSON-RPC 2.0 tool protocol: the tool
// descriptor and the message dispatcher.
package protocol

// ToolDescriptor describes the single exposed tool. It is built once at
// startup and never changes for the life of the process.
type ToolDescriptor struct {
	Name          string        `json:"name"`
	SchemaVersion string        `json:"schema_version"`
	Type          string        `json:"type"`
	Description   string        `json:"description"`
	InputSchema   InputSchema   `json:"input_schema"`
	Endpoint      *EndpointInfo `json:"endpoint,omitempty"`
}

// InputSchema is the JSON schema for the tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property is one schema property.
type Property struct {
	Type    string   `json:"type"`
	Default int      `json:"default,omitempty"`
	Enum    []string `json:"enum,omitempty"`
}

// EndpointInfo tells SSE clients where to POST tool calls.
type EndpointInfo struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

// NewToolDescriptor builds the descriptor for the search tool.
func NewToolDescriptor(name, description string, defaultResults int) *ToolDescriptor {
	return &ToolDescriptor{
		Name:          name,
		SchemaVersion: "1.0",
		Type:          "function",
		Description:   description,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"query":       {Type: "string"},
				"num_results": {Type: "integer", Default: defaultResults},
				"filter":      {Type: "string", Enum: []string{"code", "text", ""}},
			},
			Required: []string{"query"},
		},
	}
}

// WithEndpoint returns a copy of the descriptor carrying endpoint info.
func (d *ToolDescriptor) WithEndpoint(path, method string) *ToolDescriptor {
	copied := *d
	copied.Endpoint = &EndpointInfo{Path: path, Method: method}
	return &copied
}
