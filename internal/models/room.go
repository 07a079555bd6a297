package models

// ResourceFlags describes which media a session currently offers
type ResourceFlags struct {
	Screen bool `json:"screen"`
	Video  bool `json:"video"`
	Audio  bool `json:"audio"`
}

// DefaultResourceFlags is what every new session starts with
func DefaultResourceFlags() ResourceFlags {
	return ResourceFlags{Screen: false, Video: true, Audio: false}
}

// RoomDescriptor is the join ack payload: member id -> resources
type RoomDescriptor struct {
	Clients map[string]ResourceFlags `json:"clients"`
}

// RemoveEvent is broadcast to a room when a session leaves or withdraws a feed.
// Type is empty for a full leave.
type RemoveEvent struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// RoomSummary is returned by the admin listing
type RoomSummary struct {
	Name    string `json:"name"`
	Clients int    `json:"clients"`
}

// TurnCredential is one minted entry of the turnservers event
type TurnCredential struct {
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential"`
	URLs       []string `json:"urls"`
}
