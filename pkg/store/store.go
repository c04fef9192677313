package store

import (
	"context"
	"fmt"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/store/consts"
	"github.com/barekit/givingfaq/pkg/store/file"
	mongostore "github.com/barekit/givingfaq/pkg/store/mongo"
	"github.com/barekit/givingfaq/pkg/store/mssql"
	"github.com/barekit/givingfaq/pkg/store/mysql"
	"github.com/barekit/givingfaq/pkg/store/neo4j"
	"github.com/barekit/givingfaq/pkg/store/postgres"
	"github.com/barekit/givingfaq/pkg/store/redis"
	"github.com/barekit/givingfaq/pkg/store/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Type string

const (
	TypeFile     Type = "file"
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"
	TypeMySQL    Type = "mysql"
	TypeMSSQL    Type = "mssql"
	TypeRedis    Type = "redis"
	TypeNeo4j    Type = "neo4j"
	TypeMongo    Type = "mongo"
)

// Types lists every supported store type.
func Types() []Type {
	return []Type{TypeFile, TypeSQLite, TypePostgres, TypeMySQL, TypeMSSQL, TypeRedis, TypeNeo4j, TypeMongo}
}

// Config holds configuration for snapshot stores.
type Config struct {
	Type Type
	// ConnectionString is a file path for TypeFile, a DSN or URL otherwise.
	ConnectionString string
	Username         string
	Password         string
	DBName           string
	// Key is the Redis key the snapshot is stored under.
	Key string
}

// New creates a snapshot store based on the configuration.
func New(ctx context.Context, cfg Config) (knowledge.Store, error) {
	switch cfg.Type {
	case TypeFile, "":
		return file.New(cfg.ConnectionString), nil

	case TypeSQLite:
		return sqlite.New(cfg.ConnectionString)

	case TypePostgres:
		return postgres.New(cfg.ConnectionString)

	case TypeMySQL:
		return mysql.New(cfg.ConnectionString)

	case TypeMSSQL:
		return mssql.New(cfg.ConnectionString)

	case TypeRedis:
		opts, err := goredis.ParseURL(cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return redis.New(client, cfg.Key), nil

	case TypeNeo4j:
		dbName := "neo4j" // Default Neo4j database
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return neo4j.New(cfg.ConnectionString, cfg.Username, cfg.Password, dbName)

	case TypeMongo:
		opts := options.Client().ApplyURI(cfg.ConnectionString)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		dbName := consts.DefaultDBName
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return mongostore.New(client, dbName), nil

	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
