package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/oceanworks/desal_backend/config"
	"github.com/oceanworks/desal_backend/internal/auth"
	"github.com/oceanworks/desal_backend/internal/database"
	"github.com/oceanworks/desal_backend/internal/models"
)

func main() {
	var (
		drop      = flag.Bool("drop", false, "Drop all tables before creating")
		create    = flag.Bool("create", true, "Create tables")
		check     = flag.Bool("check", false, "Check if tables exist")
		seedAdmin = flag.String("seed-admin", "", "Create an admin account with this password")
	)
	flag.Parse()

	log.Println("🏗️  Desal Backend Database Migration Tool")
	log.Println("=========================================")

	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found")
	}

	// Load configuration
	cfg := config.Load()

	// Check if database credentials are provided
	if cfg.Database.Password == "" && os.Getenv("DATABASE_URL") == "" {
		log.Println("⚠️  Database credentials not configured. Please set environment variables:")
		log.Println("   DB_HOST=your-postgres-host")
		log.Println("   DB_PORT=your-port")
		log.Println("   DB_USER=your-username")
		log.Println("   DB_PASSWORD=your-password")
		log.Println("   DB_NAME=your-database-name")
		log.Println("   DB_SSLMODE=require")
		os.Exit(1)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("✅ Connected to database: %s@%s:%s/%s",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Drop tables if requested
	if *drop {
		log.Println("🗑️  Dropping existing tables...")
		if err := database.DropTables(db.DB); err != nil {
			log.Fatalf("❌ Failed to drop tables: %v", err)
		}
	}

	// Create tables
	if *create {
		log.Println("🏗️  Creating database tables...")
		if err := database.CreateTables(db.DB); err != nil {
			log.Fatalf("❌ Failed to create tables: %v", err)
		}
	}

	// Check tables
	if *check {
		log.Println("🔍 Checking if tables exist...")
		if err := database.CheckTablesExist(db.DB); err != nil {
			log.Fatalf("❌ Table check failed: %v", err)
		}
	}

	// Seed an admin account if requested
	if *seedAdmin != "" {
		log.Println("👤 Seeding admin account...")
		authService := auth.NewService(cfg.Auth)
		hash, err := authService.HashPassword(*seedAdmin)
		if err != nil {
			log.Fatalf("❌ Failed to hash admin password: %v", err)
		}

		dataStore := database.NewDatabaseStore(db.DB)
		admin := models.User{
			Username:     "admin",
			Email:        "admin@rig.local",
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			IsActive:     true,
		}
		if err := dataStore.CreateUser(&admin); err != nil {
			log.Printf("⚠️  Admin account not created (may already exist): %v", err)
		} else {
			log.Printf("✅ Admin account created with id %d", admin.ID)
		}
	}

	log.Println("🎉 Database migration completed successfully!")
}
