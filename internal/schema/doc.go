// Package schema is the static description of the entities querykit stores:
// their ordered fields, semantic types, nullability, uniqueness, defaults and
// references. Everything else in the module consults it to validate field
// references before any store interaction.
//
// A Registry is read-only once built. Values that cross the store boundary are
// normalized to int64, string, bool, time.Time (UTC) or nil, and carried in
// Record values. Caller-supplied changes are carried in ChangeSet values that
// are validated against the schema when they are constructed.
package schema
