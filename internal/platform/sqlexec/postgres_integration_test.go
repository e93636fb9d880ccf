//go:build integration

package sqlexec_test

import (
	"testing"

	"github.com/phrazzld/querykit/internal/platform/sqlexec"
	"github.com/phrazzld/querykit/internal/testdb"
)

func init() {
	backends = append(backends, backend{
		name: "postgres",
		open: func(t *testing.T) *sqlexec.Store {
			return testdb.OpenPostgres(t).Store(testdb.Logger(t))
		},
	})
}
