package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"bookstay/internal/adapters/cloudinary"
	server "bookstay/internal/adapters/http_server"
	"bookstay/internal/adapters/mpesa"
	"bookstay/internal/adapters/observability"
	redisad "bookstay/internal/adapters/redis"
	"bookstay/internal/adapters/stripe"
	"bookstay/internal/app"
	"bookstay/internal/shared"
	mongodb "bookstay/internal/storage/mongo"
)

func main() {
	_ = godotenv.Load()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("mongo.Connect failed")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatal().Err(err).Msg("mongo ping failed")
	}
	log.Info().Msg("database connection ok")

	repo := mongodb.New(client.Database(cfg.MongoDB))
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	// gateways
	cards, err := stripe.New(cfg.StripeBase, cfg.StripeKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize card gateway")
	}
	momo, err := mpesa.New(mpesa.Config{
		Base:        cfg.MpesaBase,
		Key:         cfg.MpesaKey,
		Secret:      cfg.MpesaSecret,
		Shortcode:   cfg.MpesaShortcode,
		Passkey:     cfg.MpesaPasskey,
		CallbackURL: cfg.MpesaCallbackURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize mobile money gateway")
	}
	uploader, err := cloudinary.New(cfg.CloudinaryBase, cfg.CloudinaryCloud, cfg.CloudinaryPreset)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize image uploader")
	}

	// deps
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	hotels := app.NewHotelService(repo, uploader, q)
	bookings := app.NewBookingService(repo, repo, repo, cards, momo, app.BookingConfig{
		AttemptTTL:  cfg.AttemptTTL,
		PollTries:   cfg.StatusPollTries,
		PollBackoff: cfg.StatusPollBackoff,
	})
	auth := app.NewAuthService(repo, cfg.JWTSecret, cfg.JWTTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Q:        q,
		Hotels:   hotels,
		Bookings: bookings,
		Auth:     auth,
		AppEnv:   cfg.AppEnv,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
