// Package container wires the application's services with samber/do.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/tiered-shortener/internal/account"
	"github.com/serroba/tiered-shortener/internal/analytics"
	"github.com/serroba/tiered-shortener/internal/handlers"
	"github.com/serroba/tiered-shortener/internal/health"
	"github.com/serroba/tiered-shortener/internal/hits"
	"github.com/serroba/tiered-shortener/internal/messaging"
	"github.com/serroba/tiered-shortener/internal/middleware"
	"github.com/serroba/tiered-shortener/internal/quota"
	"github.com/serroba/tiered-shortener/internal/ratelimit"
	"github.com/serroba/tiered-shortener/internal/shortener"
	"github.com/serroba/tiered-shortener/internal/store"
	"go.uber.org/zap"
)

const consumerGroup = "shortener"

// RedisClient closes the client on injector shutdown.
type RedisClient struct {
	*redis.Client
}

func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// PostgresPool closes the pool on injector shutdown.
type PostgresPool struct {
	*pgxpool.Pool
}

func (p *PostgresPool) Shutdown() error {
	p.Close()

	return nil
}

// Repositories groups the storage implementations chosen by Options.Store.
type Repositories struct {
	Accounts account.Repository
	Links    shortener.Repository
	Checkers map[string]health.Checker
}

// LoggerPackage provides the zap logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "console" {
			return zap.NewDevelopment()
		}

		return zap.NewProduction()
	})
}

// RedisPackage provides the Redis client. Only invoke when Options.RedisAddr is set.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis address not configured")
		}

		return &RedisClient{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// PostgresPackage provides the connection pool, applying migrations first when enabled.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.Migrate {
			if err := store.Migrate(opts.DatabaseURL); err != nil {
				return nil, err
			}

			logger.Info("database migrations applied")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		return &PostgresPool{Pool: pool}, nil
	})
}

// RepositoryPackage provides account and link storage.
func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Repositories, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		repos := &Repositories{Checkers: map[string]health.Checker{}}

		switch opts.Store {
		case StorePostgres:
			pool, err := do.Invoke[*PostgresPool](i)
			if err != nil {
				return nil, err
			}

			pg := store.NewPostgresStore(pool.Pool)
			repos.Accounts = pg
			repos.Links = pg
			repos.Checkers["postgres"] = pg
		default:
			mem := store.NewMemoryStore()
			repos.Accounts = mem
			repos.Links = mem
		}

		if opts.RedisAddr != "" {
			client, err := do.Invoke[*RedisClient](i)
			if err != nil {
				return nil, err
			}

			ttl := time.Duration(opts.CacheTTL) * time.Second
			repos.Links = store.NewRedisCacheRepository(repos.Links, client.Client, ttl, logger)
			repos.Checkers["redis"] = health.NewRedisChecker(client.Client)
		}

		return repos, nil
	})
}

// PublisherGroupPackage provides the typed event publishers. Without Redis the
// events are discarded.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     client.Client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[analytics.LinkCreatedEvent], error) {
		if do.MustInvoke[*Options](i).RedisAddr == "" {
			return messaging.Discard[analytics.LinkCreatedEvent](), nil
		}

		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[analytics.LinkCreatedEvent](group.Publisher(), analytics.TopicLinkCreated), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[analytics.LinkResolvedEvent], error) {
		if do.MustInvoke[*Options](i).RedisAddr == "" {
			return messaging.Discard[analytics.LinkResolvedEvent](), nil
		}

		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[analytics.LinkResolvedEvent](group.Publisher(), analytics.TopicLinkResolved), nil
	})
}

// ShortenerPackage provides the account, quota and link services.
func ShortenerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*quota.Gate, error) {
		limits, err := quota.ParseTierLimits(do.MustInvoke[*Options](i).TierLimits)
		if err != nil {
			return nil, err
		}

		return quota.NewGate(limits), nil
	})

	do.Provide(i, func(i *do.Injector) (account.Hasher, error) {
		return account.NewBcryptHasher(do.MustInvoke[*Options](i).BcryptCost), nil
	})

	do.Provide(i, func(i *do.Injector) (*account.Registrar, error) {
		repos := do.MustInvoke[*Repositories](i)

		return account.NewRegistrar(repos.Accounts, do.MustInvoke[account.Hasher](i), do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(i, func(i *do.Injector) (*account.Verifier, error) {
		repos := do.MustInvoke[*Repositories](i)

		return account.NewVerifier(repos.Accounts, do.MustInvoke[account.Hasher](i), do.MustInvoke[*zap.Logger](i))
	})

	do.Provide(i, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)

		generate, err := shortener.NewGenerator(opts.TokenLength)
		if err != nil {
			return nil, err
		}

		return shortener.NewService(
			do.MustInvoke[*Repositories](i).Links,
			do.MustInvoke[*quota.Gate](i),
			generate,
			opts.MaxAttempts,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(i, func(i *do.Injector) (*hits.Worker, error) {
		opts := do.MustInvoke[*Options](i)

		sink := hits.RepositorySink(do.MustInvoke[*Repositories](i).Links)
		if opts.HitSink == HitSinkStream {
			sink = hits.StreamSink(do.MustInvoke[messaging.Publish[analytics.LinkResolvedEvent]](i))
		}

		return hits.NewWorker(sink, hits.Config{
			QueueSize: opts.HitQueueSize,
			Workers:   opts.HitWorkers,
			Timeout:   opts.Timeout(),
		}, do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(i, func(i *do.Injector) (*shortener.Resolver, error) {
		return shortener.NewResolver(do.MustInvoke[*Repositories](i).Links, do.MustInvoke[*hits.Worker](i)), nil
	})
}

// RateLimitPackage provides the per-client limiter, shared through Redis when configured.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*ratelimit.SlidingWindowLimiter, error) {
		if do.MustInvoke[*Options](i).RedisAddr == "" {
			return ratelimit.NewSlidingWindowLimiter(store.NewRateLimitMemoryStore()), nil
		}

		client := do.MustInvoke[*RedisClient](i)

		return ratelimit.NewSlidingWindowLimiter(store.NewRateLimitRedisStore(client.Client)), nil
	})
}

// HTTPPackage provides the router and the Huma API with all routes registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*chi.Mux, error) {
		opts := do.MustInvoke[*Options](i)

		router := chi.NewMux()
		router.Use(
			chimw.RequestID,
			chimw.RealIP,
			chimw.Recoverer,
			chimw.Timeout(opts.Timeout()),
			cors.Handler(cors.Options{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type"},
				ExposedHeaders: []string{"Location", "Retry-After"},
				MaxAge:         300,
			}),
		)

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		config := huma.DefaultConfig("URL Shortener", "1.0.0")
		config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
			"basicAuth": {Type: "http", Scheme: "basic"},
		}

		api := humachi.New(router, config)

		// Middlewares must be in place before operations are registered.
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.RateLimiter(api, do.MustInvoke[*ratelimit.SlidingWindowLimiter](i), ratelimit.DefaultLimits(), logger),
			middleware.Authenticate(api, do.MustInvoke[*account.Verifier](i), logger),
		)

		users := handlers.NewUserHandler(do.MustInvoke[*account.Registrar](i), logger)
		links := handlers.NewLinkHandler(
			do.MustInvoke[*shortener.Service](i),
			do.MustInvoke[*shortener.Resolver](i),
			do.MustInvoke[*quota.Gate](i),
			opts.PublicBaseURL(),
			do.MustInvoke[messaging.Publish[analytics.LinkCreatedEvent]](i),
			logger,
		)

		health.RegisterRoutes(api, health.NewHandler(do.MustInvoke[*Repositories](i).Checkers))
		handlers.RegisterRoutes(api, users, links)

		return api, nil
	})
}

// ConsumerGroupPackage provides the stream consumers that apply analytics events.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)
		repos := do.MustInvoke[*Repositories](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client.Client,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: consumerGroup,
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create stream subscriber: %w", err)
		}

		events := analytics.NewHandlers(repos.Links, logger)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, analytics.TopicLinkCreated, events.LinkCreated, logger))
		group.Add(messaging.NewConsumer(subscriber, analytics.TopicLinkResolved, events.LinkResolved, logger))

		return group, nil
	})
}
