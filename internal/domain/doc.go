// Package domain contains typed views of the records querykit stores: User,
// Task and Category. Each type validates itself, converts to the change set
// that creates it and decodes from a schema.Record returned by the store.
package domain
