// Package actions implements the Solana Actions payloads served for blinks:
// the metadata document, the transaction response, their headers and the
// actions.json rules file.
package actions

// ActionType values.
const (
	TypeAction      = "action"
	TypeTransaction = "transaction"
)

// ActionGetResponse is the metadata document returned by GET on an action URL.
type ActionGetResponse struct {
	Type        string       `json:"type"`
	Icon        string       `json:"icon"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Label       string       `json:"label"`
	Disabled    bool         `json:"disabled,omitempty"`
	Links       *ActionLinks `json:"links,omitempty"`
	Error       *ActionError `json:"error,omitempty"`
}

// ActionLinks lists the actions a user can pick from.
type ActionLinks struct {
	Actions []LinkedAction `json:"actions"`
}

// LinkedAction is one selectable action.
// Href may contain {name} placeholders filled from Parameters.
type LinkedAction struct {
	Type       string            `json:"type"`
	Href       string            `json:"href"`
	Label      string            `json:"label"`
	Parameters []ActionParameter `json:"parameters,omitempty"`
}

// ActionParameter is a user-supplied input of a LinkedAction.
type ActionParameter struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// ActionPostRequest is the body POSTed to an action URL.
type ActionPostRequest struct {
	Account string `json:"account"`
}

// ActionPostResponse carries the transaction for the wallet to sign.
type ActionPostResponse struct {
	Type        string `json:"type"`
	Transaction string `json:"transaction"`
	Message     string `json:"message,omitempty"`
}

// ActionError is the error body of every action endpoint.
type ActionError struct {
	Message string `json:"message"`
}

// ActionsJSON is the document served at /actions.json.
type ActionsJSON struct {
	Rules []ActionRule `json:"rules"`
}

// ActionRule maps website paths to action API paths.
type ActionRule struct {
	PathPattern string `json:"pathPattern"`
	APIPath     string `json:"apiPath"`
}
