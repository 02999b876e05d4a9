// Package events defines change events and publisher interfaces for the operation registry.
package events

// Change actions.
const (
	ActionDiscovered = "discovered"
	ActionRemoved    = "removed"
)

// OperationsChangedEvent is emitted when the registered operation set changes.
type OperationsChangedEvent struct {
	Action string `json:"action"`
	// Operations lists the reported names affected by the change.
	Operations []string `json:"operations"`
	// Count is the number of descriptors registered after the change.
	Count     int    `json:"count"`
	Service   string `json:"service,omitempty"`
	Timestamp string `json:"timestamp"`
}
