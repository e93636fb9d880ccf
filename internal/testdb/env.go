package testdb

import "github.com/phrazzld/querykit/internal/ciutil"

// IsIntegrationTestEnvironment returns true if a PostgreSQL URL is available
// through DATABASE_URL or QUERYKIT_TEST_DB_URL.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// GetTestDatabaseURL returns the PostgreSQL URL for tests.
// It checks DATABASE_URL and QUERYKIT_TEST_DB_URL in that order.
func GetTestDatabaseURL() string {
	return ciutil.TestDatabaseURL(nil)
}
