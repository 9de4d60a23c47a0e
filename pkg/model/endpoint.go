package model

// EndpointDescriptor is one endpoint reported by the server during
// discovery.
type EndpointDescriptor struct {
	URL            string   `json:"url"`
	SecurityPolicy string   `json:"securityPolicy"`
	SecurityMode   string   `json:"securityMode"`
	UserTokenKinds []string `json:"userTokenKinds"`
}

// SubscriptionOutcome is the result of the subscribe stage. Exactly one is
// produced per probe; a failed subscription carries the error text and the
// pipeline continues.
type SubscriptionOutcome struct {
	OK     bool   `json:"ok"`
	NodeID string `json:"nodeId,omitempty"`
	Error  string `json:"error,omitempty"`
}
