// Command main runs the database seeder for Postguard.
package main

import (
	"flag"
	"log"

	"postguard/internal/config"
	"postguard/internal/database"
	"postguard/internal/seed"
)

func main() {
	numPending := flag.Int("pending", 50, "Number of pending posts to create")
	numVerified := flag.Int("verified", 100, "Number of already-verified posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d pending, %d verified, clean=%v\n", *numPending, *numVerified, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	f := seed.NewFactory(database.DB)

	if *shouldClean {
		if err := f.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if _, err := f.SeedPendingPosts(*numPending); err != nil {
		log.Fatalf("Pending post seeding failed: %v", err)
	}
	if _, err := f.SeedVerifiedPosts(*numVerified); err != nil {
		log.Fatalf("Verified post seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
