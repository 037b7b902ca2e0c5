package entryintegrationtests

import (
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"

	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/integration_tests/testutils"
)

// Global variables for the test environment, initialized once.
var (
	testEnv     *testutils.TestEnvironment
	testEnvOnce sync.Once
	testEnvErr  error
)

// TestDeps holds dependencies needed by individual tests.
type TestDeps struct {
	Ctx   context.Context
	DB    *entrydb.EntryDBImpl
	BunDB *bun.DB
}

func GetTestEnv(t *testing.T) *testutils.TestEnvironment {
	t.Helper()

	testEnvOnce.Do(func() {
		log.Println("Initializing entry test environment...")
		env, err := testutils.NewTestEnvironment(t)
		if err != nil {
			testEnvErr = err
			log.Printf("Failed to set up test environment: %v", err)
		} else {
			testEnv = env
		}
	})

	if testEnvErr != nil {
		t.Fatalf("Entry test environment initialization failed: %v", testEnvErr)
	}
	if testEnv == nil {
		t.Fatalf("Entry test environment not initialized")
	}
	return testEnv
}

func SetupTestEntryDB(t *testing.T) TestDeps {
	t.Helper()

	env := GetTestEnv(t)

	resetCtx, resetCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer resetCancel()
	if err := env.Reset(resetCtx); err != nil {
		t.Fatalf("Failed to reset environment: %v", err)
	}

	return TestDeps{
		Ctx:   env.Ctx,
		DB:    env.DBService.EntryDB,
		BunDB: env.DB,
	}
}
