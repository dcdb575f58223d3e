package tool

import (
	"strings"
)

var categoryDescriptions = map[Category]string{
	CategoryConversations: "Tools for managing conversations, messages, and communication workflows",
	CategoryCalendars:     "Tools for calendar management, events, appointments, and scheduling",
	CategoryBlog:          "Tools for blog post creation, management, and content operations",
	CategoryContacts:      "Tools for contact management and customer data operations",
	CategoryCampaigns:     "Tools for marketing campaign management and automation",
}

// Description returns the human readable summary of c shown in the directory.
func (c Category) Description() string {
	if d, ok := categoryDescriptions[c]; ok {
		return d
	}
	return "Tools in the " + string(c) + " category"
}

// TriggerType classifies a tool by the verb in its name.
type TriggerType string

const (
	TriggerRead   TriggerType = "read"
	TriggerUpdate TriggerType = "update"
	TriggerCreate TriggerType = "create"
	TriggerDelete TriggerType = "delete"
	TriggerSearch TriggerType = "search"
	TriggerAction TriggerType = "action"
)

// Trigger derives the trigger type from the tool name. The first matching
// verb wins, checked in read, update, create, delete, search order.
func (d ToolDefinition) Trigger() TriggerType {
	n := d.Name
	switch {
	case strings.Contains(n, "view") || strings.Contains(n, "get"):
		return TriggerRead
	case strings.Contains(n, "edit") || strings.Contains(n, "update"):
		return TriggerUpdate
	case strings.Contains(n, "create") || strings.Contains(n, "send"):
		return TriggerCreate
	case strings.Contains(n, "delete"):
		return TriggerDelete
	case strings.Contains(n, "search"):
		return TriggerSearch
	}
	return TriggerAction
}

// ExampleLocationID is the placeholder used in generated example requests.
const ExampleLocationID = "your-location-id"

// ExampleRequest builds a sample proxy body: the location placeholder plus a
// plausible value for every other required parameter.
func (d ToolDefinition) ExampleRequest() map[string]any {
	out := map[string]any{"locationId": ExampleLocationID}
	for _, p := range d.Params {
		if p.Name == "locationId" || !p.Spec.Required {
			continue
		}
		out[p.Name] = exampleValue(p)
	}
	return out
}

func exampleValue(p Parameter) any {
	switch p.Spec.Type {
	case ParamString:
		if len(p.Spec.Enum) > 0 {
			return p.Spec.Enum[0]
		}
		return "example-" + p.Name
	case ParamNumber:
		if p.Spec.Default != nil {
			return p.Spec.Default
		}
		return 20
	case ParamBoolean:
		return true
	case ParamArray:
		return []string{"example-item"}
	}
	return nil
}

// RequiredParams returns the names of the mandatory parameters in declaration order.
func (d ToolDefinition) RequiredParams() []string {
	out := make([]string, 0)
	for _, p := range d.Params {
		if p.Spec.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// OptionalParams returns the names of the optional parameters in declaration order.
func (d ToolDefinition) OptionalParams() []string {
	out := make([]string, 0)
	for _, p := range d.Params {
		if !p.Spec.Required {
			out = append(out, p.Name)
		}
	}
	return out
}
