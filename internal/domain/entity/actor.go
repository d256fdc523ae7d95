package entity

// Capability is a flat permission string, e.g. "kyc.lmro" or "workflow.admin"
type Capability string

const (
	CapabilityAdmin  Capability = "workflow.admin"
	CapabilityReject Capability = "workflow.reject"
)

// String returns the string representation of the capability
func (c Capability) String() string {
	return string(c)
}

// Actor is a user acting on a workflow, with a resolved capability set
type Actor struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email,omitempty"`
	LarkOpenID   string       `json:"lark_open_id,omitempty"`
	Capabilities []Capability `json:"capabilities"`
}

// HasCapability reports whether the actor holds the given capability
func (a *Actor) HasCapability(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor may bypass stage role checks
func (a *Actor) IsAdmin() bool {
	return a.HasCapability(CapabilityAdmin)
}
