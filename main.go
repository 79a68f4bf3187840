package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kdimentionaltree/sol-trace-go/cache"
	_ "github.com/kdimentionaltree/sol-trace-go/docs"
	"github.com/kdimentionaltree/sol-trace-go/index"
	"github.com/kdimentionaltree/sol-trace-go/ingest"
	"github.com/kdimentionaltree/sol-trace-go/streaming"
	"github.com/kdimentionaltree/sol-trace-go/trace"
)

type Settings struct {
	PgDsn        string
	MaxConns     int
	MinConns     int
	RedisDsn     string
	Bind         string
	InstanceName string
	Prefork      bool
	Debug        bool
	LogLevel     string
	Queue        string
	Channel      string
	Workers      int
	MaxPrograms  int
	Request      index.RequestSettings
}

var pool *index.DbClient
var rdb *redis.Client
var service *index.TraceService
var logger *logrus.Logger
var settings Settings

//	@title			Solana Trace Index (Go)
//	@version		1.0.0
//	@description	Reconstructs program call traces from Solana transaction logs and serves them with stored summaries.
//  @query.collection.format multi

// @summary		Parse transaction logs
// @description	Builds the call trace of log lines given in the request body without storing them.
// @id	api_v1_post_parse_logs
// @tags	traces
// @Accept       json
// @Produce      json
// @success		200	{object}	trace.TransactionTrace
// @failure		400	{object}	index.RequestError
// @failure		422	{object}	index.RequestError
// @param	request body index.ParseLogsRequest true "Transaction log lines"
// @router			/api/v1/parseLogs [post]
func PostParseLogs(c *fiber.Ctx) error {
	var req index.ParseLogsRequest
	if err := c.BodyParser(&req); err != nil {
		return index.IndexError{Code: 400, Message: err.Error()}
	}
	res, err := service.ParseLogs(req)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// @summary		Store transaction logs
// @description	Stores log lines of a transaction with the summary of its trace. With *async* the request is queued and processed by workers.
// @id	api_v1_post_transaction_logs
// @tags	traces
// @Accept       json
// @Produce      json
// @success		200	{object}	index.TransactionLogs
// @success		202	{object}	index.TransactionLogs
// @failure		400	{object}	index.RequestError
// @failure		422	{object}	index.RequestError
// @param	request body index.StoreLogsRequest true "Transaction log lines"
// @param	async query bool false "Queue the request instead of storing it immediately." default(false)
// @router			/api/v1/transactionLogs [post]
func PostTransactionLogs(c *fiber.Ctx) error {
	var req index.StoreLogsRequest
	if err := c.BodyParser(&req); err != nil {
		return index.IndexError{Code: 400, Message: err.Error()}
	}
	if c.QueryBool("async", false) {
		if err := req.Validate(settings.Request); err != nil {
			return err
		}
		if err := ingest.Enqueue(c.Context(), rdb, settings.Queue, req); err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(index.TransactionLogs{
			Signature: index.SignatureType(req.Signature),
			Slot:      req.Slot,
		})
	}
	row, err := service.StoreLogs(c.Context(), req)
	if err != nil {
		return err
	}
	row.LogMessages = nil
	return c.JSON(row)
}

// @summary Get transaction logs
// @description Returns stored transactions with their trace summaries by specified filters.
// @id api_v1_get_transaction_logs
// @tags traces
// @Accept       json
// @Produce      json
// @success		200	{object}	index.TransactionLogsResponse
// @failure		400	{object}	index.RequestError
// @param	signature query []string false "Transaction signature in base58. Can be sent multiple times." collectionFormat(multi)
// @param	program query string false "Program id that was invoked by the transaction."
// @param	is_success query bool false "Transaction verdict."
// @param	trace_state query string false "Trace state." Enums(ok, malformed)
// @param start_slot query int64 false "Query transactions with `slot >= start_slot`." minimum(0)
// @param end_slot query int64 false "Query transactions with `slot <= end_slot`." minimum(0)
// @param limit query int32 false "Limit number of queried rows. Use with *offset* to batch read." minimum(1) maximum(1000) default(10)
// @param offset query int32 false "Skip first N rows. Use with *limit* to batch read." minimum(0) default(0)
// @param sort query string false "Sort results by slot." Enums(asc, desc) default(desc)
// @router			/api/v1/transactionLogs [get]
func GetTransactionLogs(c *fiber.Ctx) error {
	logs_req := index.TransactionLogsRequest{}
	slot_req := index.SlotRequest{}
	lim_req := index.LimitRequest{}

	if err := c.QueryParser(&logs_req); err != nil {
		return index.IndexError{Code: 422, Message: err.Error()}
	}
	if err := c.QueryParser(&slot_req); err != nil {
		return index.IndexError{Code: 422, Message: err.Error()}
	}
	if err := c.QueryParser(&lim_req); err != nil {
		return index.IndexError{Code: 422, Message: err.Error()}
	}

	res, err := service.QueryTransactionLogs(c.Context(), logs_req, slot_req, lim_req)
	if err != nil {
		return err
	}
	return c.JSON(index.TransactionLogsResponse{TransactionLogs: res})
}

// @summary Get transaction traces
// @description Returns call traces of stored transactions. Unknown signatures are skipped, unless a single signature is requested.
// @id api_v1_get_transaction_trace
// @tags traces
// @Accept       json
// @Produce      json
// @success		200	{object}	index.TransactionTracesResponse
// @failure		400	{object}	index.RequestError
// @failure		404	{object}	index.RequestError
// @failure		422	{object}	index.RequestError
// @param	signature query []string true "Transaction signature in base58. Can be sent multiple times." collectionFormat(multi)
// @router			/api/v1/transactionTrace [get]
func GetTransactionTrace(c *fiber.Ctx) error {
	req := index.TransactionTraceRequest{}
	if err := c.QueryParser(&req); err != nil {
		return index.IndexError{Code: 422, Message: err.Error()}
	}
	if len(req.Signature) == 0 {
		return index.IndexError{Code: 422, Message: "signature is required"}
	}
	if settings.Request.MaxLimit > 0 && len(req.Signature) > settings.Request.MaxLimit {
		return index.IndexError{Code: 422, Message: fmt.Sprintf("too many signatures: %d > %d", len(req.Signature), settings.Request.MaxLimit)}
	}

	if len(req.Signature) == 1 {
		res, err := service.GetTransactionTrace(c.Context(), req.Signature[0])
		if err != nil {
			return err
		}
		return c.JSON(index.TransactionTracesResponse{Traces: []trace.TransactionTrace{*res}})
	}
	res, err := service.GetTransactionTraces(c.Context(), req.Signature)
	if err != nil {
		return err
	}
	return c.JSON(index.TransactionTracesResponse{Traces: res})
}

func HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), settings.Request.Timeout)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return index.IndexError{Code: 503, Message: "postgres: " + err.Error()}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return index.IndexError{Code: 503, Message: "redis: " + err.Error()}
	}
	return c.Status(200).SendString("OK")
}

func ErrorHandlerFunc(ctx *fiber.Ctx, err error) error {
	ip := ctx.IP()
	if ips := ctx.IPs(); len(ips) > 0 {
		ip = ips[0]
	}
	fields := logrus.Fields{
		"path":    ctx.Path(),
		"ip":      ip,
		"queries": ctx.Queries(),
	}

	var ierr index.IndexError
	var ferr *fiber.Error
	switch {
	case errors.As(err, &ierr):
		if ierr.Code != 404 {
			fields["code"] = ierr.Code
			logger.WithFields(fields).WithError(err).Warn("request failed")
		}
		return ctx.Status(ierr.Code).JSON(ierr)
	case errors.As(err, &ferr):
		return ctx.Status(ferr.Code).JSON(index.IndexError{Code: ferr.Code, Message: ferr.Message})
	default:
		fields["body"] = string(ctx.Body())
		logger.WithFields(fields).WithError(err).Error("internal server error")
		resp := map[string]string{}
		resp["error"] = fmt.Sprintf("internal server error: %s", err.Error())
		return ctx.Status(fiber.StatusInternalServerError).JSON(resp)
	}
}

func registerConverters() {
	fiber.SetParserDecoder(fiber.ParserConfig{
		IgnoreUnknownKeys: true,
		ParserType: []fiber.ParserType{
			{Customtype: index.SignatureType(""), Converter: index.SignatureConverter},
			{Customtype: index.ProgramIdType(""), Converter: index.ProgramIdConverter},
			{Customtype: index.TraceState(""), Converter: index.TraceStateConverter},
		},
		ZeroEmpty: true,
	})
}

func main() {
	var timeout_ms int

	flag.StringVar(&settings.PgDsn, "pg", "postgresql://localhost:5432", "PostgreSQL connection string")
	flag.IntVar(&settings.MaxConns, "maxconns", 100, "PostgreSQL max connections")
	flag.IntVar(&settings.MinConns, "minconns", 0, "PostgreSQL min connections")
	flag.StringVar(&settings.RedisDsn, "redis", "redis://localhost:6379", "Redis connection string")
	flag.StringVar(&settings.Bind, "bind", ":8000", "Bind address")
	flag.StringVar(&settings.InstanceName, "name", "Go", "Instance name to show in Swagger UI")
	flag.BoolVar(&settings.Prefork, "prefork", false, "Prefork workers")
	flag.BoolVar(&settings.Debug, "debug", false, "Run service in debug mode")
	flag.StringVar(&settings.LogLevel, "log-level", "info", "Log level")
	flag.StringVar(&settings.Queue, "queue", "transaction_logs_queue", "Redis list with queued transaction logs")
	flag.StringVar(&settings.Channel, "channel", "trace_summaries", "Redis channel for stored trace summaries")
	flag.IntVar(&settings.Workers, "workers", 4, "Number of queue consumers, 0 disables the queue")
	flag.IntVar(&settings.MaxPrograms, "max-subscribed-programs", 100, "Maximum number of programs in a stream subscription")
	flag.IntVar(&timeout_ms, "query-timeout", 3000, "Query timeout in milliseconds")
	flag.IntVar(&settings.Request.DefaultLimit, "default-limit", 100, "Default value for limit")
	flag.IntVar(&settings.Request.MaxLimit, "max-limit", 1000, "Maximum value for limit")
	flag.IntVar(&settings.Request.MaxLogLines, "max-lines", 4096, "Maximum number of log lines in a transaction")
	flag.DurationVar(&settings.Request.CacheTtl, "cache-ttl", time.Hour, "TTL of cached traces")
	flag.Parse()
	settings.Request.Timeout = time.Duration(timeout_ms) * time.Millisecond
	settings.Request.DebugRequest = settings.Debug

	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(settings.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithError(err).Warn("unknown log level, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	pool, err = index.NewDbClient(settings.PgDsn, settings.MaxConns, settings.MinConns)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to PostgreSQL")
	}
	pool.Logger = logger
	defer pool.Close()
	if err := pool.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("failed to create schema")
	}

	redisOpts, err := redis.ParseURL(settings.RedisDsn)
	if err != nil {
		logger.WithError(err).Fatal("invalid redis connection string")
	}
	rdb = redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	events := cache.NewChannel(cache.Options[index.TransactionLogs]{
		Client:  rdb,
		Encoder: cache.JSONEncoder[index.TransactionLogs](),
		Decoder: cache.JSONDecoder[index.TransactionLogs](),
		Prefix:  settings.Channel,
	})
	service = &index.TraceService{
		Store:    pool,
		Cache:    cache.NewManager(rdb),
		Events:   events,
		Logger:   logger,
		Settings: settings.Request,
	}

	// background workers run in the parent process only
	if !fiber.IsChild() {
		if settings.Workers > 0 {
			worker := &ingest.Worker{
				Client:  rdb,
				Queue:   settings.Queue,
				Service: service,
				Logger:  logger,
			}
			go func() {
				if err := worker.Run(ctx, settings.Workers); err != nil {
					logger.WithError(err).Error("queue worker stopped")
				}
			}()
			logger.WithFields(logrus.Fields{"queue": settings.Queue, "workers": settings.Workers}).Info("started queue workers")
		}
	}

	manager := streaming.NewClientManager(logger)
	go manager.Run(ctx)
	go func() {
		if err := streaming.SubscribeToSummaries(ctx, events, manager); err != nil {
			logger.WithError(err).Error("summary subscription stopped")
		}
	}()

	// web server
	config := fiber.Config{
		AppName:      "Solana Trace Index API",
		Concurrency:  256 * 1024,
		Prefork:      settings.Prefork,
		ErrorHandler: ErrorHandlerFunc,
		BodyLimit:    16 * 1024 * 1024,
	}
	app := fiber.New(config)

	registerConverters()

	// endpoints
	app.Use("/api/v1/", func(c *fiber.Ctx) error {
		c.Accepts("application/json")
		start := time.Now()
		err := c.Next()
		stop := time.Now()
		c.Append("Server-timing", fmt.Sprintf("app;dur=%v", stop.Sub(start).String()))
		return err
	})
	if settings.Debug {
		app.Use(pprof.New())
	}

	// healthcheck
	app.Get("/healthcheck", HealthCheck)

	// traces
	app.Post("/api/v1/parseLogs", PostParseLogs)
	app.Post("/api/v1/transactionLogs", PostTransactionLogs)
	app.Get("/api/v1/transactionLogs", GetTransactionLogs)
	app.Get("/api/v1/transactionTrace", GetTransactionTrace)

	// stream
	app.Use("/api/v1/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/api/v1/stream", websocket.New(streaming.WebSocketHandler(manager, settings.MaxPrograms)))

	// swagger
	var swagger_config = swagger.Config{
		Title:           "Solana Trace Index (" + settings.InstanceName + ") - Swagger UI",
		Layout:          "BaseLayout",
		DeepLinking:     true,
		TryItOutEnabled: true,
	}
	app.Get("/api/v1/*", swagger.New(swagger_config))

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()
	if err := app.Listen(settings.Bind); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
