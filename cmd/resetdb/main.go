package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/oceanworks/desal_backend/config"
	"github.com/oceanworks/desal_backend/internal/database"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: .env file not found")
	}

	cfg := config.Load()

	log.Println("🔄 Connecting to database...")
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect: %v", err)
	}
	defer db.Close()

	log.Println("✅ Connected to database")
	fmt.Printf("⚠️  This will DROP every table in %s and recreate them empty.\n", cfg.Database.DBName)
	fmt.Print("Type 'yes' to continue: ")

	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	if strings.TrimSpace(answer) != "yes" {
		log.Println("🛑 Aborted")
		return
	}

	log.Println("🗑️  Dropping all tables...")
	if err := database.DropTables(db.DB); err != nil {
		log.Fatalf("❌ Failed to drop tables: %v", err)
	}

	log.Println("🏗️  Recreating tables...")
	if err := database.CreateTables(db.DB); err != nil {
		log.Fatalf("❌ Failed to create tables: %v", err)
	}

	log.Println("🎉 Database reset complete. Run cmd/migrate with -seed-admin to recreate the admin account")
}
