// Package testdb provides database helpers for tests.
//
// Every test gets its own migrated SQLite database in t.TempDir(), so tests
// can run in parallel without sharing state:
//
//	func TestMyFeature(t *testing.T) {
//	    t.Parallel()
//	    s := testdb.NewStore(t)
//	    ...
//	}
//
// Tests that need PostgreSQL live in _integration_test.go files built with
// the integration tag (go test -tags integration ./...) and call
// OpenPostgres, which skips the test unless DATABASE_URL is set. WithTx runs a test body in a transaction that is
// rolled back afterwards.
package testdb
