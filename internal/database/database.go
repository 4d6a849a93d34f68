package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vastra_back_end/internal/config"
)

// Databases regroupe les connexions ouvertes au démarrage. Mongo et Redis
// sont obligatoires ; Scylla, Elastic et MinIO restent nil quand ils ne
// sont pas configurés.
type Databases struct {
	MongoClient *mongo.Client
	Mongo       *mongo.Database
	Redis       *redis.Client
	Scylla      *gocql.Session
	Elastic     *elasticsearch.Client
	MinIO       *minio.Client
}

// --- Initialisation ---
func ConnectDatabases(cfg *config.Config) (*Databases, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbs := &Databases{}
	var err error

	// 1. MongoDB
	if dbs.MongoClient, err = connectMongo(ctx, cfg); err != nil {
		return nil, err
	}
	dbs.Mongo = dbs.MongoClient.Database(cfg.MongoDB)
	if err := EnsureIndexes(ctx, dbs.Mongo); err != nil {
		return nil, err
	}

	// 2. Redis
	if dbs.Redis, err = connectRedis(ctx, cfg); err != nil {
		return nil, err
	}

	// 3. ScyllaDB (journal d'audit)
	if len(cfg.ScyllaHosts) > 0 {
		if dbs.Scylla, err = connectScylla(cfg); err != nil {
			log.Printf("⚠️ ScyllaDB indisponible, audit désactivé: %v", err)
		}
	} else {
		log.Println("⚠️ SCYLLA_HOSTS non configuré, audit désactivé")
	}

	// 4. Elasticsearch
	if cfg.ElasticURL != "" {
		if dbs.Elastic, err = connectElastic(cfg); err != nil {
			log.Printf("⚠️ Elasticsearch indisponible, recherche via MongoDB: %v", err)
		}
	}

	// 5. MinIO
	if cfg.MinioEndpoint != "" {
		if dbs.MinIO, err = connectMinIO(ctx, cfg); err != nil {
			log.Printf("⚠️ MinIO indisponible, upload d'images désactivé: %v", err)
		}
	}

	log.Println("✅ Toutes les bases de données sont connectées")
	return dbs, nil
}

func (d *Databases) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if d.MongoClient != nil {
		_ = d.MongoClient.Disconnect(ctx)
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.Scylla != nil {
		d.Scylla.Close()
		log.Println("🔌 Session ScyllaDB fermée")
	}
}

// =============================================
// MONGODB
// =============================================
func connectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connexion MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	log.Println("✅ Connecté à MongoDB:", cfg.MongoDB)
	return client, nil
}

// =============================================
// REDIS
// =============================================
func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisHost,
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connexion Redis: %w", err)
	}
	log.Println("✅ Connecté à Redis")
	return client, nil
}

// =============================================
// SCYLLA DB
// =============================================
func connectScylla(cfg *config.Config) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Keyspace = cfg.ScyllaKeyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 4
	cluster.ReconnectInterval = 1 * time.Second
	if cfg.ScyllaUsername != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.ScyllaUsername,
			Password: cfg.ScyllaPassword,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("session keyspace %s: %w", cfg.ScyllaKeyspace, err)
	}
	log.Printf("✅ Session ScyllaDB ouverte pour keyspace '%s'", cfg.ScyllaKeyspace)
	return session, nil
}

// =============================================
// ELASTICSEARCH
// =============================================
func connectElastic(cfg *config.Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	log.Println("✅ Connecté à Elasticsearch")
	return client, nil
}

// =============================================
// MINIO
// =============================================
func connectMinIO(ctx context.Context, cfg *config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("client MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("vérification bucket MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("création bucket MinIO: %w", err)
		}
		log.Println("🪣 Bucket créé :", cfg.MinioBucket)
	} else {
		log.Println("🪣 Bucket MinIO déjà présent :", cfg.MinioBucket)
	}

	log.Println("✅ Connecté à MinIO :", cfg.MinioEndpoint)
	return client, nil
}
