package models

type Identifier interface {
	GetId() int
}

// one-to-many loader rows, grouped by the owning id
type RelatedData interface {
	GetReferenceId() int
}
