package tierledger

import "github.com/xraph/tierledger/id"

// ID is the primary identifier type for all tierledger entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
