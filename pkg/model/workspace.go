package model

// Workspace is a TFE workspace, the parent container whose resources are browsed.
// Attributes holds the raw JSON:API attributes ("name", "execution-mode", ...).
type Workspace struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// WorkspaceFromAttributes builds a Workspace, taking the display name from the
// "name" attribute and falling back to the id when it is absent.
func WorkspaceFromAttributes(id string, attrs map[string]interface{}) Workspace {
	name, ok := attrs["name"].(string)
	if !ok || name == "" {
		name = id
	}
	return Workspace{ID: id, Name: name, Attributes: attrs}
}
