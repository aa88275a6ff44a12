package pg

import (
	"context"
	"testing"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Run("returns error when database URL is empty", func(t *testing.T) {
		// when
		_, err := New("")

		// then
		assert.EqualError(t, err, "database URL is empty")
	})

	t.Run("returns error when timeout is invalid", func(t *testing.T) {
		// when
		_, err := New("postgres://localhost:5432/test", func(o *Options) {
			o.Timeout = 0
		})

		// then
		assert.EqualError(t, err, "timeout must be greater than or equal to 1 ms")
	})
}

func TestMigrateDatabase(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	pgEngine := e.(*pgEngine)

	t.Run("schema version set", func(t *testing.T) {
		// when
		pgCtx, cancel, err := pgEngine.acquire(context.Background())
		if err != nil {
			t.Fatalf("failed to acquire context: %v", err)
		}

		defer cancel()

		schemaVersion, err := selectSchemaVersion(pgCtx)
		if err := pgEngine.release(pgCtx, err); err != nil {
			t.Fatalf("failed to select schema version: %v", err)
		}

		// then
		versions, err := readVersions()
		if err != nil {
			t.Fatalf("failed to read versions: %v", err)
		}

		assert.Equal(versions[len(versions)-1], schemaVersion)
	})

	t.Run("migrate again", func(t *testing.T) {
		// when
		err := pgEngine.migrateDatabase()

		// then
		assert.Nil(err)
	})
}

func TestSetTime(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	t.Run("returns error when time is before engine time", func(t *testing.T) {
		// when
		err := e.SetTime(context.Background(), engine.SetTimeCmd{})

		// then
		assert.IsTypef(engine.Error{}, err, "expected engine error")

		engineErr := err.(engine.Error)
		assert.Equal(engine.ErrorConflict, engineErr.Type)
	})

	t.Run("set time", func(t *testing.T) {
		// given
		newTime := time.Now().AddDate(0, 0, 7).UTC()

		// when
		err := e.SetTime(context.Background(), engine.SetTimeCmd{Time: newTime})

		// then
		assert.Nil(err)

		pgEngine := e.(*pgEngine)

		pgCtx, cancel, err := pgEngine.acquire(context.Background())
		if err != nil {
			t.Fatalf("failed to acquire context: %v", err)
		}

		defer cancel()

		engineTime := pgCtx.Time()
		pgEngine.release(pgCtx, nil)

		assert.False(engineTime.Before(newTime.Truncate(time.Millisecond)))

		// when called again
		time.Sleep(10 * time.Millisecond)
		err = e.SetTime(context.Background(), engine.SetTimeCmd{Time: newTime})

		// then
		assert.IsTypef(engine.Error{}, err, "expected engine error")

		engineErr := err.(engine.Error)
		assert.Equal(engine.ErrorConflict, engineErr.Type)
	})
}
