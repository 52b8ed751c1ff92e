// Package testutils provides common utilities for testing across the application.
// It centralizes repeated test setup and teardown logic to avoid duplication
// and standardize testing practices.
//
// Database helpers follow a transaction isolation pattern: each test runs in
// its own transaction, which is rolled back when the test completes.
//
//	func TestMyFeature(t *testing.T) {
//	    db := testutils.GetTestDBWithT(t)
//	    testutils.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        userStore := postgres.NewPostgresUserStore(tx, bcrypt.MinCost)
//	        // changes are rolled back automatically
//	    })
//	}
//
// Integration tests should call IsIntegrationTestEnvironment and skip when
// DATABASE_URL is not set.
package testutils
