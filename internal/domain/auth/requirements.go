package auth

// RequiredScopes are the vendor scopes a credential needs for the core tools.
var RequiredScopes = []string{
	"View Contacts",
	"Edit Contacts",
	"View Conversations",
	"Edit Conversations",
	"View Conversation Messages",
	"Edit Conversation Messages",
	"View Calendars",
	"Edit Calendars",
	"View Calendar Events",
	"Edit Calendar Events",
	"View Custom Fields",
	"View Locations",
}

// OptionalScopes unlock features outside the core tool set.
var OptionalScopes = []string{
	"View Opportunities",
	"Edit Opportunities",
	"View Payment Orders",
	"View Payment Transactions",
}

// Requirements describes how to obtain a usable credential.
type Requirements struct {
	APIKeyFormat   string            `json:"apiKeyFormat"`
	RequiredScopes []string          `json:"requiredScopes"`
	OptionalScopes []string          `json:"optionalScopes"`
	Instructions   map[string]string `json:"instructions"`
}

// CredentialRequirements returns the onboarding description served by
// GET /auth/requirements.
func CredentialRequirements() Requirements {
	return Requirements{
		APIKeyFormat:   `Private Integration Token (PIT) starting with "pit-"`,
		RequiredScopes: append([]string(nil), RequiredScopes...),
		OptionalScopes: append([]string(nil), OptionalScopes...),
		Instructions: map[string]string{
			"step1": "Go to Settings > Private Integrations in your GoHighLevel location",
			"step2": `Click "Create New Integration"`,
			"step3": "Select the required scopes listed above",
			"step4": "Copy the generated PIT token",
			"step5": "Use the token with this API for authentication",
		},
	}
}
