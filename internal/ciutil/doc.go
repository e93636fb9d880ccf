// Package ciutil detects CI runs and resolves the environment variables test
// helpers read, such as the PostgreSQL URL for integration tests.
package ciutil
