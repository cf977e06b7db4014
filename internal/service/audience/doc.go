// Package audience implements audience list management and target
// resolution for surveys.
//
// The service layer contains all business logic for creating lists, managing
// membership, and computing a survey's concrete recipient set from its
// include/exclude list references. It depends on the repository interface
// defined in this package and should never import from bot/ or api/.
//
// Repository implementations live in repository/postgres/.
package audience
