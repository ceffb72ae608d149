package models

import "fmt"

// OperationKind is the verb of a ShapeOperation.
type OperationKind string

const (
	OperationAdd         OperationKind = "ADD"
	OperationChange      OperationKind = "CHANGE"
	OperationRemove      OperationKind = "REMOVE"
	OperationChangeIndex OperationKind = "CHANGE_INDEX"
)

// IndexOrder is a z-order directive for CHANGE_INDEX.
type IndexOrder string

const (
	OrderTop    IndexOrder = "TOP"
	OrderUp     IndexOrder = "UP"
	OrderDown   IndexOrder = "DOWN"
	OrderBottom IndexOrder = "BOTTOM"
)

// ShapeOperation is the only payload exchanged between the UI and the engine.
type ShapeOperation struct {
	Operation OperationKind `json:"operation"`
	Past      []ShapeEntry  `json:"past,omitempty"`
	Present   []ShapeEntry  `json:"present"`
	Order     IndexOrder    `json:"order,omitempty"`
}

// Validate checks the structural contract of an operation. CHANGE and REMOVE
// must carry a past snapshot for every present entry.
func (op *ShapeOperation) Validate() error {
	switch op.Operation {
	case OperationAdd:
	case OperationChange, OperationRemove:
		if len(op.Past) != len(op.Present) {
			return fmt.Errorf("%s requires a past snapshot per entry: got %d past for %d present",
				op.Operation, len(op.Past), len(op.Present))
		}
	case OperationChangeIndex:
		if op.Order != "" && !op.Order.Valid() {
			return fmt.Errorf("unknown order directive: %q", op.Order)
		}
	default:
		return fmt.Errorf("unknown operation: %q", op.Operation)
	}
	if len(op.Present) == 0 {
		return fmt.Errorf("%s has no entries", op.Operation)
	}
	return nil
}

// Valid reports whether o is a known directive.
func (o IndexOrder) Valid() bool {
	switch o {
	case OrderTop, OrderUp, OrderDown, OrderBottom:
		return true
	}
	return false
}

// Clone deep-copies the operation.
func (op ShapeOperation) Clone() ShapeOperation {
	return ShapeOperation{
		Operation: op.Operation,
		Past:      CloneEntries(op.Past),
		Present:   CloneEntries(op.Present),
		Order:     op.Order,
	}
}
