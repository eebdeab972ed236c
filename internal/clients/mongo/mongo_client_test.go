package mongo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mind-scribe/internal/config"
	"mind-scribe/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	msgClientShouldBeNil = "client should be nil on connection failure"
	msgDBShouldBeNil     = "db should be nil on connection failure"
	mongoTestURI         = "mongodb://invalid/?connectTimeoutMS=1&serverSelectionTimeoutMS=1"
)

// stubDriver implements the driver interface for testing
type stubDriver struct {
	connectErr error
	pingErr    error
}

func (s stubDriver) Connect(_ context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	// mongo.Connect is lazy, so this never dials.
	return mongo.Connect(opts)
}

func (s stubDriver) Ping(_ context.Context, _ *mongo.Client) error { return s.pingErr }

func (stubDriver) Disconnect(_ context.Context, _ *mongo.Client) error { return nil }

// withDriver temporarily replaces the global driver for a test
func withDriver(t *testing.T, d driver) {
	t.Helper()
	old := drv
	drv = d
	reset()
	t.Cleanup(func() {
		drv = old
		reset()
	})
}

// reset clears the singleton without going through Shutdown.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	client = nil
	db = nil
	closed = false
}

func testCfg() config.Config {
	return config.Config{
		MongoURI:    mongoTestURI,
		MongoDBName: "test",
		LogLevel:    "error",
		LogFormat:   "json",
	}
}

func TestMongoClientConnectFailure(t *testing.T) {
	withDriver(t, stubDriver{connectErr: context.DeadlineExceeded})

	log, err := logger.Init(testCfg())
	require.NoError(t, err)

	client1, db1, err1 := Init(context.Background(), testCfg(), log)
	client2, db2, err2 := Init(context.Background(), testCfg(), log)

	assert.Nil(t, client1, msgClientShouldBeNil)
	assert.Nil(t, db1, msgDBShouldBeNil)
	assert.Nil(t, client2, msgClientShouldBeNil)
	assert.Nil(t, db2, msgDBShouldBeNil)
	assert.ErrorIs(t, err1, context.DeadlineExceeded)
	assert.ErrorIs(t, err2, context.DeadlineExceeded, "a failed Init is retried, not cached")
}

func TestMongoClientPingFailure(t *testing.T) {
	pingErr := errors.New("no primary")
	withDriver(t, stubDriver{pingErr: pingErr})

	cli, database, err := Init(context.Background(), testCfg(), logger.L())
	assert.ErrorIs(t, err, pingErr)
	assert.Nil(t, cli)
	assert.Nil(t, database)
	assert.Nil(t, Client())
}

func TestMongoClientSuccessIsCached(t *testing.T) {
	withDriver(t, stubDriver{})

	cli1, db1, err := Init(context.Background(), testCfg(), logger.L())
	require.NoError(t, err)
	cli2, db2, err := Init(context.Background(), testCfg(), logger.L())
	require.NoError(t, err)

	assert.Same(t, cli1, cli2)
	assert.Same(t, db1, db2)
	assert.Same(t, cli1, Client())
	assert.Equal(t, "test", DB().Name())

	require.NoError(t, Shutdown(context.Background()))
	assert.ErrorIs(t, Shutdown(context.Background()), ErrShutdown)
	assert.Nil(t, Client())
	assert.Nil(t, DB())
}

func TestMongoClientShutdownIdempotency(t *testing.T) {
	withDriver(t, stubDriver{connectErr: context.DeadlineExceeded})

	_, _, err := Init(context.Background(), testCfg(), logger.L())
	require.Error(t, err)

	err1 := Shutdown(context.Background())
	err2 := Shutdown(context.Background())
	err3 := Shutdown(context.Background())

	assert.ErrorIs(t, err1, ErrNotInitialized)
	assert.ErrorIs(t, err2, ErrShutdown)
	assert.ErrorIs(t, err3, ErrShutdown)
}

func TestMongoClientConcurrency(t *testing.T) {
	withDriver(t, stubDriver{})

	const goroutines = 10
	var wg sync.WaitGroup
	clients := make([]*mongo.Client, goroutines)

	wg.Add(goroutines)
	for i := range goroutines {
		go func(index int) {
			defer wg.Done()
			cli, _, err := Init(context.Background(), testCfg(), logger.L())
			assert.NoError(t, err)
			clients[index] = cli
		}(i)
	}
	wg.Wait()

	require.NotNil(t, clients[0])
	for i := 1; i < goroutines; i++ {
		assert.Same(t, clients[0], clients[i], "all callers share one client")
	}
}
