package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"bugboard/internal/handlers"
	"bugboard/internal/middleware"
	"bugboard/internal/models"
	"bugboard/internal/repositories"
	"bugboard/internal/services"
	"bugboard/pkg/blobstore"
	"bugboard/pkg/mailer"

	"github.com/spf13/viper"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_DSN", "bugboard.db")
	viper.SetDefault("JWT_SECRET", "change-me-in-production")
	viper.SetDefault("TOKEN_TTL_MINUTES", 30)
	viper.SetDefault("BCRYPT_COST", services.DefaultBcryptCost)
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("MAX_UPLOAD_BYTES", services.MaxAttachmentBytes)
	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", "587")
	viper.SetDefault("SMTP_USERNAME", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("SMTP_FROM", "noreply@bugboard.local")
	viper.SetDefault("ADMIN_EMAIL", "admin@bugboard.local")
	viper.SetDefault("ADMIN_PASSWORD", "admin123")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")

	// --- Database ---
	db, err := openDatabase(viper.GetString("DB_DRIVER"), viper.GetString("DB_DSN"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Issue{}, &models.Attachment{}, &models.Team{}); err != nil {
		log.Fatalf("Failed to migrate database schema: %v", err)
	}

	// --- Blob store ---
	blobs, err := blobstore.NewFSStore(viper.GetString("UPLOAD_DIR"))
	if err != nil {
		log.Fatalf("Failed to initialize upload directory: %v", err)
	}

	// --- Mailer ---
	var mail mailer.Mailer
	if host := viper.GetString("SMTP_HOST"); host != "" {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     host,
			Port:     viper.GetString("SMTP_PORT"),
			Username: viper.GetString("SMTP_USERNAME"),
			Password: viper.GetString("SMTP_PASSWORD"),
			From:     viper.GetString("SMTP_FROM"),
		})
	} else {
		log.Println("SMTP_HOST not set, outgoing mail will be logged only")
		mail = mailer.NewLogMailer()
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	issueRepo := repositories.NewGORMIssueRepository(db)
	attachmentRepo := repositories.NewGORMAttachmentRepository(db)
	teamRepo := repositories.NewGORMTeamRepository(db)

	// --- Services ---
	creds := services.NewCredentialStore(viper.GetInt("BCRYPT_COST"))
	tokens := services.NewTokenService(
		userRepo,
		viper.GetString("JWT_SECRET"),
		time.Duration(viper.GetInt("TOKEN_TTL_MINUTES"))*time.Minute,
	)
	authService := services.NewAuthService(userRepo, tokens, creds, mail)
	userService := services.NewUserService(userRepo, creds, mail)
	issueService := services.NewIssueService(issueRepo, userRepo, attachmentRepo, blobs)
	attachmentService := services.NewAttachmentService(attachmentRepo, issueRepo, blobs, viper.GetInt64("MAX_UPLOAD_BYTES"))
	teamService := services.NewTeamService(teamRepo, userRepo, issueRepo)

	// Bootstrap admin so a fresh deployment has a way in.
	seedAdmin(userRepo, creds, viper.GetString("ADMIN_EMAIL"), viper.GetString("ADMIN_PASSWORD"))

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService, userService)
	userHandler := handlers.NewUserHandler(userService)
	issueHandler := handlers.NewIssueHandler(issueService)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentService)
	teamHandler := handlers.NewTeamHandler(teamService)

	// --- Fiber App ---
	app := fiber.New(fiber.Config{
		BodyLimit: int(viper.GetInt64("MAX_UPLOAD_BYTES")) + 1024*1024,
	})
	app.Use(logger.New())

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")

	// Public routes: login and password reset.
	authHandler.RegisterRoutes(apiV1)

	// Everything else requires a valid session.
	protected := apiV1.Group("", middleware.AuthRequired(tokens))
	authHandler.RegisterProtectedRoutes(protected)
	userHandler.RegisterRoutes(protected)
	issueHandler.RegisterRoutes(protected)
	attachmentHandler.RegisterRoutes(protected)
	teamHandler.RegisterRoutes(protected)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// openDatabase opens the configured GORM dialect. TranslateError turns the
// dialect-specific duplicate-key failures into gorm.ErrDuplicatedKey so the
// repositories can recognize them.
func openDatabase(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{TranslateError: true}
	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	default:
		return gorm.Open(sqlite.Open(dsn), cfg)
	}
}

// seedAdmin creates the bootstrap administrator if the directory is empty of
// it. The account is inserted without a creator and then pointed at itself,
// since it is the only user not created by another one.
func seedAdmin(repo repositories.UserRepository, creds *services.CredentialStore, email, password string) {
	existing, err := repo.GetByEmail(email)
	if err != nil {
		log.Printf("Error checking for bootstrap admin: %v", err)
		return
	}
	if existing != nil {
		return
	}

	hashed, err := creds.HashPassword(password)
	if err != nil {
		log.Printf("Error hashing bootstrap admin password: %v", err)
		return
	}

	now := time.Now()
	admin := &models.User{
		FirstName: "System",
		LastName:  "Administrator",
		Email:     email,
		Password:  hashed,
		Role:      models.RoleAdmin,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(admin); err != nil {
		log.Printf("Error seeding bootstrap admin: %v", err)
		return
	}

	admin.CreatedByID = &admin.ID
	if err := repo.Update(admin); err != nil {
		log.Printf("Error linking bootstrap admin creator: %v", err)
		return
	}
	log.Printf("Seeded bootstrap admin: %s (ID: %d)", admin.Email, admin.ID)
}
