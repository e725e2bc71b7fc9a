package estate

import "github.com/google/uuid"

// Relationship classifies a person's statutory relationship to the deceased.
type Relationship string

const (
	RelationshipSpouse           Relationship = "SPOUSE"
	RelationshipCohabitingSpouse Relationship = "COHABITING_SPOUSE"
	RelationshipChild            Relationship = "CHILD"
	RelationshipGrandchild       Relationship = "GRANDCHILD"
	RelationshipParent           Relationship = "PARENT"
	RelationshipSibling          Relationship = "SIBLING"
	RelationshipOther            Relationship = "OTHER"
)

// Beneficiary identifies a person entitled to share in the estate. A child
// may stand in for a deceased heir; RepresentsID then points at the heir
// whose share flows down by representation.
type Beneficiary struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Relationship Relationship `json:"relationship"`
	Alive        bool         `json:"alive"`
	RepresentsID *uuid.UUID   `json:"representsId,omitempty"`
}

// Represents reports whether the beneficiary takes by representation.
func (b Beneficiary) Represents() bool {
	return b.RepresentsID != nil
}
