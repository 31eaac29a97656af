package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/workerpool"

	gbconfig "github.com/grillbook/grillbook/config"
	"github.com/grillbook/grillbook/internal/api"
	"github.com/grillbook/grillbook/internal/connectutil"
	convhandler "github.com/grillbook/grillbook/internal/conversation/handler"
	"github.com/grillbook/grillbook/internal/session"
	"github.com/grillbook/grillbook/pkg/booking"
	"github.com/grillbook/grillbook/pkg/budget"
	"github.com/grillbook/grillbook/pkg/calllog"
	"github.com/grillbook/grillbook/pkg/dialog"
	"github.com/grillbook/grillbook/pkg/events"
	"github.com/grillbook/grillbook/pkg/knowledge"
	"github.com/grillbook/grillbook/pkg/metrics"
	"github.com/grillbook/grillbook/pkg/urlvalidation"
	"github.com/grillbook/grillbook/pkg/voiceagent"
)

func main() {
	ctx := context.Background()

	// A local .env is optional; real deployments set the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	cfg, err := config.LoadWithOIDC[gbconfig.GrillbookConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	ctx, srv := frame.NewService(
		frame.WithConfig(&cfg),
		frame.WithName("grillbook"),
		frame.WithRegisterServerOauth2Client(),
		frame.WithDatastore(),
		frame.WithRegisterPublisher(eventRef, eventURL),
		frame.WithWorkerPoolOptions(
			workerpool.WithPoolCount(cfg.WorkerPoolCount),
			workerpool.WithSinglePoolCapacity(cfg.WorkerPoolCapacity),
		),
	)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	authenticator := srv.SecurityManager().GetAuthenticator(ctx)

	pub := events.NewPublisher(srv.QueueManager(), "grillbook", eventRef)

	dbPool := srv.DatastoreManager().GetPool(ctx, "__default__pool_name__")

	// --- Response budget ---
	budgeter := budget.New(
		budget.NewTokenizer(cfg.TokenizerModel),
		cfg.MaxResponseTokens,
		budget.WithReductionHook(metrics.ObserveBudgetReduction),
	)

	// --- State transition engine ---
	engine := dialog.NewEngine(nil)
	if cfg.DialogFile != "" {
		loader := dialog.NewLoader(cfg.DialogFile, engine)
		if _, err := loader.Load(); err != nil {
			log.Printf("warning: loading dialog graph, using built-in graph: %v", err)
		} else if cfg.DialogHotReload {
			go func() {
				if err := loader.WatchAndReload(ctx.Done()); err != nil {
					slog.Error("dialog hot reload stopped", slog.String("error", err.Error()))
				}
			}()
		}
	}

	// --- Sessions ---
	redisClient, err := session.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("connecting to redis: %v", err)
	}
	defer redisClient.Close()
	sessions := session.NewStore(redisClient, cfg.SessionTTL)

	// --- Bookings ---
	kb := knowledge.Default()
	bookingRepo := booking.NewRepository(dbPool)
	if err := bookingRepo.Migrate(ctx); err != nil {
		log.Fatalf("migrating bookings: %v", err)
	}
	bookings := booking.NewService(bookingRepo, kb, pub)

	// --- Conversation logs ---
	logRepo := calllog.NewRepository(dbPool)
	if err := logRepo.Migrate(ctx); err != nil {
		log.Fatalf("migrating call logs: %v", err)
	}
	var sheet calllog.Appender
	if cfg.SheetsEnabled() {
		appender, err := calllog.NewSheetsAppender(ctx, calllog.SheetsConfig{
			SpreadsheetID:    cfg.SheetsSpreadsheetID,
			Range:            cfg.SheetsRange,
			CredentialsFile:  cfg.GoogleCredentialsFile,
			Timeout:          cfg.SheetsTimeout,
			FailureThreshold: cfg.SheetsFailThreshold,
			ResetTimeout:     cfg.SheetsResetTimeout,
		})
		if err != nil {
			log.Printf("warning: spreadsheet logging disabled: %v", err)
		} else {
			sheet = appender
		}
	}
	recorder := calllog.NewRecorder(logRepo, sheet, calllog.NewFileFallback(cfg.CallLogFallbackDir), pub)
	logSubscriber := &calllog.Subscriber{
		Recorder: recorder,
		Pool:     pool,
	}

	// --- Voice platform ---
	var validateOpts []urlvalidation.Option
	if cfg.VoiceAgentAllowPrivateIPs {
		validateOpts = append(validateOpts, urlvalidation.AllowPrivateIPs())
	}
	agents := voiceagent.NewClient(voiceagent.ClientConfig{
		BaseURL: cfg.VoiceAgentBaseURL,
		APIKey:  cfg.VoiceAgentAPIKey,
		Timeout: cfg.VoiceAgentTimeout,
	}, pub, validateOpts...)

	// --- HTTP Mux: Connect RPC, REST and metrics on one server ---
	mux := http.NewServeMux()

	opts, err := connectutil.AuthenticatedOptions(ctx, authenticator)
	if err != nil {
		log.Fatalf("setting up auth interceptors: %v", err)
	}

	convHdlr := convhandler.NewConversationHandler(engine, sessions, budgeter, pub)
	go convHdlr.ReportActiveSessions(ctx, time.Minute)
	path, h := convhandler.NewConversationServiceHandler(convHdlr, opts...)
	mux.Handle(path, h)

	restHdlr := api.NewHandler(api.Deps{
		Engine:        engine,
		Budget:        budgeter,
		Knowledge:     kb,
		Bookings:      bookings,
		Logs:          recorder,
		Dispatcher:    voiceagent.NewDispatcher(kb, bookings, budgeter),
		Agents:        agents,
		WebhookURL:    cfg.VoiceAgentWebhookURL,
		WebhookSecret: cfg.VoiceAgentWebhookSecret,
	})
	restMux := http.NewServeMux()
	restHdlr.RegisterRoutes(restMux)

	var rest http.Handler = connectutil.AuthenticatedHTTPMiddleware(restMux, authenticator)
	rest = connectutil.RateLimit(cfg.RateLimitPerMinute, time.Minute)(rest)
	mux.Handle("/api/", connectutil.LogRequests(rest))

	mux.Handle("/metrics", metrics.Handler())

	srv.Init(ctx,
		frame.WithRegisterSubscriber(eventRef+".calllog", eventURL, logSubscriber),
		frame.WithHTTPHandler(connectutil.H2CHandler(mux)),
	)

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
