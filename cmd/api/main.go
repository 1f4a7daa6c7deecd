package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/robeeeeeet/bottle-keep/internal/ai"
	"github.com/robeeeeeet/bottle-keep/internal/auth"
	"github.com/robeeeeeet/bottle-keep/internal/collection"
	"github.com/robeeeeeet/bottle-keep/internal/handlers"
	"github.com/robeeeeeet/bottle-keep/internal/httpserver"
	"github.com/robeeeeeet/bottle-keep/internal/logger"
	"github.com/robeeeeeet/bottle-keep/internal/share"
	"github.com/robeeeeeet/bottle-keep/internal/shelf"
	"github.com/robeeeeeet/bottle-keep/internal/storage"
	"github.com/robeeeeeet/bottle-keep/internal/store"
)

type Config struct {
	Port                 string `envconfig:"PORT" default:"8080"`
	DatabaseURL          string `envconfig:"DATABASE_URL" required:"true"`
	SupabaseURL          string `envconfig:"SUPABASE_URL" required:"true"`
	SupabaseServiceKey   string `envconfig:"SUPABASE_SERVICE_KEY" required:"true"`
	SupabaseJWTPublicKey string `envconfig:"SUPABASE_JWT_PUBLIC_KEY"`
	SupabaseJWKSURL      string `envconfig:"SUPABASE_JWKS_URL"`
	SupabaseJWTAudience  string `envconfig:"SUPABASE_JWT_AUDIENCE" default:"authenticated"`
	SupabaseJWTIssuer    string `envconfig:"SUPABASE_JWT_ISSUER" required:"true"`
	GeminiAPIKey         string `envconfig:"GEMINI_API_KEY" required:"true"`
	GeminiModel          string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	LogLevel             string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty            bool   `envconfig:"LOG_PRETTY"`
	AutoMigrate          bool   `envconfig:"AUTO_MIGRATE"`
}

func mustLoadEnv() Config {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		log.Fatalf("env error: %v", err)
	}
	return c
}

func mustDB(dsn string, lg logger.Logger) *gorm.DB {
	// TranslateError turns driver unique-violation errors into
	// gorm.ErrDuplicatedKey, which the invite code retry loop relies on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		lg.Fatalf("db connect error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		lg.Fatalf("db handle error: %v", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		lg.Fatalf("db ping error: %v", err)
	}
	return db
}

func main() {
	cfg := mustLoadEnv()
	lg := logger.New(cfg.LogLevel, cfg.LogPretty)
	defer func() { _ = lg.Sync() }()

	db := mustDB(cfg.DatabaseURL, lg)
	st := store.New(db)
	if cfg.AutoMigrate {
		if err := st.Migrate(context.Background()); err != nil {
			lg.Fatalf("migrate error: %v", err)
		}
	}

	photoStore := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	aiClient := ai.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)

	shareSvc := share.NewService(st, lg)
	shelfSvc := shelf.NewService(st)
	collectionSvc := collection.NewService(st, photoStore, lg)

	profileHandler := handlers.NewProfileHandler(st)
	shareHandler := handlers.NewShareHandler(shareSvc)
	shelfHandler := handlers.NewShelfHandler(shelfSvc)
	entryHandler := handlers.NewEntryHandler(collectionSvc)
	identifyHandler := handlers.NewIdentifyHandler(aiClient)
	photoHandler := handlers.NewPhotoHandler(photoStore)

	verifier := &auth.Verifier{
		PublicKeyPEMOrJWKS: cfg.SupabaseJWTPublicKey,
		JWKSURL:            cfg.SupabaseJWKSURL,
		Audience:           cfg.SupabaseJWTAudience,
		Issuer:             cfg.SupabaseJWTIssuer,
	}

	mount := func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(verifier.Middleware)
			r.Get("/me", profileHandler.Me)
			r.Get("/shelf", shelfHandler.List)
			r.Get("/alcohols/{id}", entryHandler.GetAlcohol)
			r.Route("/shares", shareHandler.Routes)
			r.Route("/friends", shareHandler.FriendRoutes)
			r.Route("/entries", entryHandler.Routes)
			r.Post("/identify", identifyHandler.Identify)
			r.Post("/photos", photoHandler.Upload)
		})
	}

	srv := httpserver.New(":"+cfg.Port, lg, mount)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			lg.Fatalf("server error: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			lg.Errorf("shutdown error: %v", err)
		}
	}
}
