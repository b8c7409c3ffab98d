package types

// Event is the wire representation of a structured state change. Attributes
// carry stringified ids and before/after values so off-chain indexers can
// consume events without knowing module internals.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
