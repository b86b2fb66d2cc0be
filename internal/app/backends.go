// Package app wires configured adapters into the core ports. Both binaries
// share it so the server and the renderer always agree on drivers.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"spec-registry-service/internal/adapters/secondary/dynamodb"
	"spec-registry-service/internal/adapters/secondary/memory"
	"spec-registry-service/internal/adapters/secondary/postgres"
	"spec-registry-service/internal/adapters/secondary/redisqueue"
	s3store "spec-registry-service/internal/adapters/secondary/s3"
	"spec-registry-service/internal/adapters/secondary/sqsqueue"
	"spec-registry-service/internal/config"
	output "spec-registry-service/internal/core/ports/output"
)

// Backends holds the secondary adapters selected by configuration.
type Backends struct {
	Specifications output.Table
	Groups         output.Table
	Blobs          output.BlobStore
	Queue          output.ChangeQueue

	checks  []func(context.Context) error
	closers []func()
}

// Open connects every configured backend. Call Close when done, including
// after an error.
func Open(ctx context.Context, cfg *config.Config) (*Backends, error) {
	b := &Backends{}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return aws.Config{}, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	if err := b.openStore(ctx, cfg, loadAWS); err != nil {
		return b, err
	}
	if err := b.openBlobs(cfg, loadAWS); err != nil {
		return b, err
	}
	if err := b.openQueue(ctx, cfg, loadAWS); err != nil {
		return b, err
	}
	return b, nil
}

func (b *Backends) openStore(ctx context.Context, cfg *config.Config, loadAWS func() (aws.Config, error)) error {
	specSchema := output.SpecificationsSchema(cfg.Store.SpecificationsTable)
	groupSchema := output.GroupsSchema(cfg.Store.GroupsTable)

	switch cfg.Store.Driver {
	case "postgres":
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("parse db config: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("create db pool: %w", err)
		}
		b.closers = append(b.closers, pool.Close)

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping db: %w", err)
		}
		for _, schema := range []output.TableSchema{specSchema, groupSchema} {
			if err := postgres.EnsureSchema(ctx, pool, schema); err != nil {
				return err
			}
		}
		b.checks = append(b.checks, pool.Ping)
		b.Specifications = postgres.NewItemTable(pool, specSchema)
		b.Groups = postgres.NewItemTable(pool, groupSchema)
		log.Info("database connection established")

	case "dynamodb":
		awsCfg, err := loadAWS()
		if err != nil {
			return err
		}
		client := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		b.Specifications = dynamodb.NewTable(client, specSchema)
		b.Groups = dynamodb.NewTable(client, groupSchema)
		log.WithField("table", specSchema.Name).Info("dynamodb store configured")

	default:
		b.Specifications = memory.NewTable(specSchema)
		b.Groups = memory.NewTable(groupSchema)
		log.Warn("using in-memory record store; data is lost on restart")
	}
	return nil
}

func (b *Backends) openBlobs(cfg *config.Config, loadAWS func() (aws.Config, error)) error {
	switch cfg.Blob.Driver {
	case "s3":
		awsCfg, err := loadAWS()
		if err != nil {
			return err
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
				o.UsePathStyle = true
			}
		})
		b.Blobs = s3store.New(client, cfg.Blob.Bucket)
		log.WithField("bucket", cfg.Blob.Bucket).Info("s3 blob store configured")
	default:
		b.Blobs = memory.NewBlobStore(cfg.Blob.Bucket)
	}
	return nil
}

func (b *Backends) openQueue(ctx context.Context, cfg *config.Config, loadAWS func() (aws.Config, error)) error {
	switch cfg.Queue.Driver {
	case "redis":
		client, err := redisqueue.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.checks = append(b.checks, func(ctx context.Context) error { return client.Ping(ctx).Err() })

		q := redisqueue.New(client, cfg.Redis.Stream, cfg.Redis.Group, cfg.Redis.Consumer,
			redisqueue.WithVisibilityTimeout(cfg.Queue.VisibilityTimeout))
		if err := q.EnsureGroup(ctx); err != nil {
			return err
		}
		b.Queue = q
		log.WithField("stream", cfg.Redis.Stream).Info("redis change queue configured")

	case "sqs":
		awsCfg, err := loadAWS()
		if err != nil {
			return err
		}
		client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		b.Queue = sqsqueue.New(client, cfg.SQS.QueueURL, cfg.Queue.VisibilityTimeout)
		log.WithField("queue_url", cfg.SQS.QueueURL).Info("sqs change queue configured")

	default:
		b.Queue = memory.NewQueue(memory.WithVisibilityTimeout(cfg.Queue.VisibilityTimeout))
	}
	return nil
}

// InProcess reports whether the queue only exists inside this process, in
// which case the server must run the render consumer itself.
func (b *Backends) InProcess() bool {
	_, ok := b.Queue.(*memory.Queue)
	return ok
}

// Ping checks every backend with a live connection.
func (b *Backends) Ping(ctx context.Context) error {
	for _, check := range b.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}
