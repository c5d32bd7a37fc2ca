package model

// Template kinds looked up per organization.
const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateCatalogue         = "catalogue"
	TemplateBackInStock       = "back_in_stock"
)

// ChannelConfig describes the messaging channel an organization sends
// through. Credentials are resolved by the send activity and never travel in
// workflow arguments.
type ChannelConfig struct {
	ID       string `json:"id"`
	OrgID    string `json:"orgId"`
	Provider string `json:"provider"`
	Sender   string `json:"sender"`
	Active   bool   `json:"active"`
}

// Template is a message body with text/template placeholders.
type Template struct {
	ID       string `json:"id"`
	OrgID    string `json:"orgId"`
	Kind     string `json:"kind"`
	Language string `json:"language,omitempty"`
	Body     string `json:"body"`
}

type Catalogue struct {
	ID       string    `json:"id"`
	OrgID    string    `json:"orgId"`
	Name     string    `json:"name"`
	URL      string    `json:"url,omitempty"`
	Products []Product `json:"products"`
}

type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
	URL   string `json:"url,omitempty"`
}
