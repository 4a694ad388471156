package model

// MutationKind classifies a result write.
type MutationKind string

// Mutation kinds.
const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
	MutationNoop   MutationKind = "noop"
)

// Mutation carries the before/after images of a single result write.
// DeliveryID identifies the delivery for de-duplication; it is not part of
// the scoring semantics.
type Mutation struct {
	DeliveryID string  `json:"delivery_id,omitempty"`
	Before     *Result `json:"before,omitempty"`
	After      *Result `json:"after,omitempty"`
}

// Kind reports which trigger shape the mutation has.
func (m Mutation) Kind() MutationKind {
	switch {
	case m.After != nil && m.Before != nil:
		return MutationUpdate
	case m.After != nil:
		return MutationCreate
	case m.Before != nil:
		return MutationDelete
	default:
		return MutationNoop
	}
}
