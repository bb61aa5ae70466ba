package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	config "github.com/anjiri1684/tutor_desk/configs"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/anjiri1684/tutor_desk/store/memory"
	mongostore "github.com/anjiri1684/tutor_desk/store/mongo"
	"github.com/anjiri1684/tutor_desk/store/postgres"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func ConnectPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		DisableNestedTransaction:                 true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// Open connects the store selected by cfg.StoreDriver and migrates it.
func Open(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (store.Store, error) {
	var st store.Store
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st = postgres.New(db)
	case config.DriverMongo:
		client, err := ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		st = mongostore.New(client, cfg.MongoDB, mongostore.WithTransactions(cfg.MongoTransactions))
	case config.DriverMemory:
		logger.Warn("using the in-memory store, data is lost on restart")
		st = memory.New()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if m, ok := st.(migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	logger.Info("database connected", slog.String("driver", cfg.StoreDriver))
	return st, nil
}
