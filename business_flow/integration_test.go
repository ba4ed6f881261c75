package businessflow

import (
	"testing"

	testingutil "github.com/velmart/velmart-backend/testing"
)

// setupIntegrationDB provisions a throwaway database for one test. Tests
// relying on it skip when no PostgreSQL instance is reachable, so the pure
// unit tests in this package still run everywhere.
func setupIntegrationDB(t *testing.T) (*testingutil.TestDB, *testingutil.TestFixtures) {
	t.Helper()
	tdb, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := tdb.TeardownTestDB(); err != nil {
			t.Logf("teardown failed: %v", err)
		}
	})
	return tdb, testingutil.NewTestFixtures(tdb)
}
