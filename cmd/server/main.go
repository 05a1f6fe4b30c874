package main

import (
	"context"
	"net"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata" // embedded zoneinfo

	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/transferflow-backend/internal/adapter/external"
	grpcadapter "github.com/simaogato/transferflow-backend/internal/adapter/grpc"
	"github.com/simaogato/transferflow-backend/internal/adapter/messaging/rabbitmq"
	"github.com/simaogato/transferflow-backend/internal/adapter/repository/mongodb"
	"github.com/simaogato/transferflow-backend/internal/adapter/repository/postgres"
	redisrepo "github.com/simaogato/transferflow-backend/internal/adapter/repository/redis"
	"github.com/simaogato/transferflow-backend/internal/adapter/scheduler"
	"github.com/simaogato/transferflow-backend/internal/config"
	"github.com/simaogato/transferflow-backend/internal/logging"
	"github.com/simaogato/transferflow-backend/internal/usecase/execution"
	"github.com/simaogato/transferflow-backend/internal/usecase/notification"
	"github.com/simaogato/transferflow-backend/internal/usecase/scheduling"
	"github.com/simaogato/transferflow-backend/internal/usecase/transfer"
)

const connectTimeout = 5 * time.Second

func main() {
	cfg, envLoaded, err := config.Load()
	if err != nil {
		boot := logging.New("info", true)
		boot.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogConsole)
	if !envLoaded {
		log.Debug().Msg("No .env file found, relying on system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Setup Database
	db, err := postgres.NewDB(cfg.DBConnStr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	ledgerRepo := postgres.NewLedgerRepository(db)
	jobStore := postgres.NewJobStore(db, log)

	// 2. Optional infrastructure
	var gatewayOpts []scheduler.Option

	if redisClient := connectRedis(ctx, cfg, log); redisClient != nil {
		defer redisClient.Close()
		gatewayOpts = append(gatewayOpts, scheduler.WithDeduplicator(redisrepo.NewFireDeduplicator(redisClient)))
	}

	if mongoClient := connectMongo(ctx, cfg, log); mongoClient != nil {
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()
			_ = mongoClient.Disconnect(disconnectCtx)
		}()
		gatewayOpts = append(gatewayOpts, scheduler.WithRecorder(mongodb.NewExecutionAudit(mongoClient, cfg.MongoDatabase)))
	}

	// 3. External services
	accountClient := external.NewAccountClient(cfg.AccountServiceURL, cfg.HTTPClientTimeout, external.Credentials{
		AuthToken: cfg.AccountAuthToken,
		APIKey:    cfg.ServiceAPIKey,
	})
	customerClient := external.NewCustomerClient(cfg.CustomerServiceURL, cfg.HTTPClientTimeout)

	// 4. Initialize Services (Use Cases)
	var notifier transfer.Notifier
	if amqpConn, ch := connectRabbitMQ(cfg, log); ch != nil {
		defer amqpConn.Close()
		defer ch.Close()
		notifier = notification.NewNotifier(customerClient, accountClient, rabbitmq.NewPublisher(ch, cfg.RabbitMQExchange), cfg.NotificationTopic, log)
	}

	transferService := transfer.NewTransferService(accountClient, ledgerRepo, notifier, log)
	bridge := execution.NewBridge(transferService, log)

	gateway := scheduler.NewGateway(jobStore, bridge, scheduler.Config{
		InstanceID:       cfg.Scheduler.InstanceID,
		Workers:          cfg.Scheduler.Workers,
		PollInterval:     cfg.Scheduler.PollInterval,
		BatchSize:        cfg.Scheduler.BatchSize,
		MisfireThreshold: cfg.Scheduler.MisfireThreshold,
		RecoveryAfter:    cfg.Scheduler.RecoveryAfter,
		DedupTTL:         cfg.FireDedupTTL,
	}, log, gatewayOpts...)

	schedulingService := scheduling.NewSchedulingService(accountClient, gateway, log)

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(cfg.APIToken)),
	)
	grpcadapter.RegisterTransferServiceServer(grpcServer, grpcadapter.NewServer(schedulingService, transferService, log))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("Failed to listen")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := gateway.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduler stopped with error")
		}
	}()
	go func() {
		defer wg.Done()
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC server stopped with error")
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")
	grpcServer.GracefulStop()
	wg.Wait()
	log.Info().Msg("Server stopped")
}

func connectRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) *goredis.Client {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set, fire deduplication disabled")
		return nil
	}
	client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("Could not connect to Redis, fire deduplication disabled")
		_ = client.Close()
		return nil
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	return client
}

func connectMongo(ctx context.Context, cfg *config.Config, log zerolog.Logger) *mongo.Client {
	if cfg.MongoURI == "" {
		log.Warn().Msg("MONGO_URI not set, execution audit disabled")
		return nil
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Warn().Err(err).Msg("Could not create MongoDB client, execution audit disabled")
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		log.Warn().Err(err).Msg("Could not connect to MongoDB, execution audit disabled")
		_ = client.Disconnect(context.Background())
		return nil
	}
	log.Info().Str("database", cfg.MongoDatabase).Msg("Connected to MongoDB")
	return client
}

func connectRabbitMQ(cfg *config.Config, log zerolog.Logger) (*amqp.Connection, *amqp.Channel) {
	if cfg.RabbitMQURL == "" {
		log.Warn().Msg("RABBITMQ_URL not set, completion notifications disabled")
		return nil, nil
	}
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Warn().Err(err).Msg("Could not connect to RabbitMQ, completion notifications disabled")
		return nil, nil
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("Could not open RabbitMQ channel, completion notifications disabled")
		_ = conn.Close()
		return nil, nil
	}
	if err := rabbitmq.DeclareExchange(ch, cfg.RabbitMQExchange); err != nil {
		log.Warn().Err(err).Msg("Could not declare exchange, completion notifications disabled")
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil
	}
	log.Info().Str("exchange", cfg.RabbitMQExchange).Msg("Connected to RabbitMQ")
	return conn, ch
}
