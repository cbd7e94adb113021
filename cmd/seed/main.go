// Command seed populates the platform database with demo data.
package main

import (
	"flag"
	"log"

	"matchday/internal/config"
	"matchday/internal/database"
	"matchday/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 8, "Number of accounts to create")
	numSchedules := flag.Int("schedules", 12, "Number of schedules to create")
	numMessages := flag.Int("messages", 40, "Number of chat messages to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d schedules, %d messages, clean=%v",
		*numUsers, *numSchedules, *numMessages, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if err := seed.Demo(db, seed.Options{
		NumUsers:     *numUsers,
		NumSchedules: *numSchedules,
		NumMessages:  *numMessages,
		ShouldClean:  *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete. Every seeded account's password is \"password1\".")
}
