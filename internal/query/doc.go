// Package query composes predicates and statements over schema entities
// without executing them.
//
// Predicates are immutable values bound to one entity; every field
// reference, operator and value is checked against the schema when the
// predicate is built, so a type mismatch never reaches the store. Statements
// (Select, Join, Insert, Update, Delete) are likewise validated by their
// constructors and executed elsewhere, see internal/platform/sqlexec.
//
//	users := query.On(schema.Users)
//	young, err := users.Lt("age", 18)
//	...
//	eve, err := users.Eq("username", "eve")
//	...
//	p, err := query.Or(young, eve)
//	sel, err := query.NewSelect(schema.Users, query.Where(p), query.OrderBy("age", query.Desc))
//
// Mutations that touch every record are only expressible through
// NewUpdateAll and NewDeleteAll.
package query
