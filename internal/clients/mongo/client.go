package mongo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mind-scribe/internal/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrNotInitialized is returned by Shutdown when Init never produced a client.
var ErrNotInitialized = errors.New("mongo client not initialized")

// ErrShutdown is returned by Shutdown once the client is already closed.
var ErrShutdown = errors.New("mongo client already shut down")

var (
	drv driver = mongoDriver{}

	client *mongo.Client
	db     *mongo.Database
	closed bool
	mu     sync.Mutex
)

// Init connects to MongoDB and pings the primary. A successful connection is
// cached; after a failure the next call retries.
func Init(ctx context.Context, cfg config.Config, log *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	mu.Lock()
	defer mu.Unlock()

	if client != nil && db != nil {
		return client, db, nil
	}

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(10 * time.Second).
		SetAppName("mind-scribe")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cli, err := drv.Connect(ctx, opts)
	if err != nil {
		log.Error("failed to connect to mongo", "err", err)
		return nil, nil, err
	}

	if err := drv.Ping(ctx, cli); err != nil {
		log.Error("failed to ping mongo", "err", err)
		_ = drv.Disconnect(ctx, cli)
		return nil, nil, err
	}

	client = cli
	db = cli.Database(cfg.MongoDBName)
	closed = false

	log.Info("successfully connected to mongo", "db", cfg.MongoDBName)
	return client, db, nil
}

// Client returns the singleton MongoDB client instance.
func Client() *mongo.Client {
	mu.Lock()
	defer mu.Unlock()
	return client
}

// DB returns the singleton MongoDB database instance.
func DB() *mongo.Database {
	mu.Lock()
	defer mu.Unlock()
	return db
}

// Shutdown disconnects the client. Repeated calls return ErrShutdown.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if client == nil {
		if closed {
			return ErrShutdown
		}
		closed = true
		return ErrNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := drv.Disconnect(ctx, client)

	client = nil
	db = nil
	closed = true

	return err
}
