package models

// EntityKind identifies one of the synchronized entity collections.
type EntityKind string

const (
	EntityClients  EntityKind = "clients"
	EntityServices EntityKind = "services"
	EntityExpenses EntityKind = "expenses"
)

// Operation is the kind of mutation carried by a queue item.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid reports whether the kind is one of the known entity collections.
func (k EntityKind) Valid() bool {
	switch k {
	case EntityClients, EntityServices, EntityExpenses:
		return true
	}
	return false
}
