package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/oceanworks/desal_backend/config"
	"github.com/oceanworks/desal_backend/internal/database"
)

func main() {
	var (
		table  = flag.String("table", "sensor_readings", "Table to view (sensor_readings, sensor_configs, logger_intervals, users, schemas)")
		limit  = flag.Int("limit", 10, "Number of records to show")
		sensor = flag.String("sensor", "", "Only show readings for this sensor id")
	)
	flag.Parse()

	log.Println("🔍 Desal Backend Database Viewer")
	log.Println("================================")

	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("✅ Connected to database: %s@%s:%s/%s",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	switch *table {
	case "sensor_readings":
		viewSensorReadings(db, *limit, *sensor)
	case "sensor_configs":
		viewSensorConfigs(db)
	case "logger_intervals":
		viewIntervals(db)
	case "users":
		viewUsers(db)
	case "schemas":
		viewSchemas(db)
	default:
		log.Printf("Unknown table: %s", *table)
		log.Println("Available tables: sensor_readings, sensor_configs, logger_intervals, users, schemas")
	}
}

func viewSensorReadings(db *database.DB, limit int, sensor string) {
	query := `
		SELECT id, sensor_id, sensor_type, value, unit, status, interval_seconds, timestamp
		FROM sensor_readings
		WHERE ($1 = '' OR sensor_id = $1)
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := db.Query(query, sensor, limit)
	if err != nil {
		log.Fatalf("❌ Query failed: %v", err)
	}
	defer rows.Close()

	fmt.Printf("\n%-6s %-10s %-18s %10s %-6s %-8s %-10s %s\n",
		"ID", "SENSOR", "TYPE", "VALUE", "UNIT", "STATUS", "INTERVAL", "TIMESTAMP")
	fmt.Println("--------------------------------------------------------------------------------------")

	count := 0
	for rows.Next() {
		var (
			id              int64
			sensorID        string
			sensorType      string
			value           float64
			unit            string
			status          string
			intervalSeconds *int
			timestamp       string
		)
		if err := rows.Scan(&id, &sensorID, &sensorType, &value, &unit, &status, &intervalSeconds, &timestamp); err != nil {
			log.Fatalf("❌ Scan failed: %v", err)
		}

		interval := "-"
		if intervalSeconds != nil {
			interval = fmt.Sprintf("%ds", *intervalSeconds)
		}
		fmt.Printf("%-6d %-10s %-18s %10.2f %-6s %-8s %-10s %s\n",
			id, sensorID, sensorType, value, unit, status, interval, timestamp)
		count++
	}

	fmt.Printf("\n📊 Showing %d readings\n", count)
}

func viewSensorConfigs(db *database.DB) {
	rows, err := db.Query(`
		SELECT sensor_id, display_name, sensor_type, unit, is_enabled, sort_order
		FROM sensor_configs
		ORDER BY sort_order, sensor_id`)
	if err != nil {
		log.Fatalf("❌ Query failed: %v", err)
	}
	defer rows.Close()

	fmt.Printf("\n%-10s %-24s %-18s %-6s %-8s %s\n",
		"SENSOR", "DISPLAY NAME", "TYPE", "UNIT", "ENABLED", "ORDER")
	fmt.Println("---------------------------------------------------------------------------")

	for rows.Next() {
		var (
			sensorID, displayName, sensorType, unit string
			isEnabled                               bool
			sortOrder                               int
		)
		if err := rows.Scan(&sensorID, &displayName, &sensorType, &unit, &isEnabled, &sortOrder); err != nil {
			log.Fatalf("❌ Scan failed: %v", err)
		}
		fmt.Printf("%-10s %-24s %-18s %-6s %-8t %d\n",
			sensorID, displayName, sensorType, unit, isEnabled, sortOrder)
	}
}

func viewIntervals(db *database.DB) {
	rows, err := db.Query(`SELECT id, interval_seconds, interval_name FROM logger_intervals ORDER BY interval_seconds`)
	if err != nil {
		log.Fatalf("❌ Query failed: %v", err)
	}
	defer rows.Close()

	fmt.Printf("\n%-4s %-10s %s\n", "ID", "SECONDS", "NAME")
	fmt.Println("------------------------------")

	for rows.Next() {
		var id, seconds int
		var name string
		if err := rows.Scan(&id, &seconds, &name); err != nil {
			log.Fatalf("❌ Scan failed: %v", err)
		}
		fmt.Printf("%-4d %-10d %s\n", id, seconds, name)
	}
}

func viewUsers(db *database.DB) {
	rows, err := db.Query(`
		SELECT id, username, email, role, is_active, active_interval_id
		FROM users
		ORDER BY id`)
	if err != nil {
		log.Fatalf("❌ Query failed: %v", err)
	}
	defer rows.Close()

	fmt.Printf("\n%-4s %-16s %-28s %-8s %-8s %s\n",
		"ID", "USERNAME", "EMAIL", "ROLE", "ACTIVE", "INTERVAL")
	fmt.Println("---------------------------------------------------------------------------")

	for rows.Next() {
		var (
			id               int
			username, email  string
			role             string
			isActive         bool
			activeIntervalID *int
		)
		if err := rows.Scan(&id, &username, &email, &role, &isActive, &activeIntervalID); err != nil {
			log.Fatalf("❌ Scan failed: %v", err)
		}

		interval := "-"
		if activeIntervalID != nil {
			interval = fmt.Sprintf("%d", *activeIntervalID)
		}
		fmt.Printf("%-4d %-16s %-28s %-8s %-8t %s\n", id, username, email, role, isActive, interval)
	}
}

func viewSchemas(db *database.DB) {
	rows, err := db.Query(`
		SELECT id, file_name, version, is_active, length(svg_content), created_at
		FROM schemas
		ORDER BY created_at DESC`)
	if err != nil {
		log.Fatalf("❌ Query failed: %v", err)
	}
	defer rows.Close()

	fmt.Printf("\n%-4s %-24s %-8s %-8s %-10s %s\n",
		"ID", "FILE", "VERSION", "ACTIVE", "SIZE", "CREATED")
	fmt.Println("---------------------------------------------------------------------------")

	for rows.Next() {
		var (
			id, version, size int
			fileName          string
			isActive          bool
			createdAt         string
		)
		if err := rows.Scan(&id, &fileName, &version, &isActive, &size, &createdAt); err != nil {
			log.Fatalf("❌ Scan failed: %v", err)
		}
		fmt.Printf("%-4d %-24s %-8d %-8t %-10d %s\n", id, fileName, version, isActive, size, createdAt)
	}
}
