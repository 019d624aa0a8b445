// Command seed loads reference data and demo requests into the database.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"approvals/internal/config"
	"approvals/internal/database"
	"approvals/internal/middleware"
	"approvals/internal/seed"
)

func main() {
	numRequests := flag.Int("requests", 25, "Number of demo requests to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for generated data")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d requests, clean=%v, seed=%d\n", *numRequests, *shouldClean, *randSeed)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, os.Stdout)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	fixtures, err := seed.LoadFixtures(nil)
	if err != nil {
		log.Fatalf("❌ Loading fixtures failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s := seed.NewSeeder(db, fixtures, *randSeed)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if err := seed.Reference(ctx, db, fixtures, seed.ReferenceOptions{
		FiscalYear: cfg.FiscalYear,
		BudgetSeed: *randSeed,
	}); err != nil {
		log.Fatalf("❌ Reference data seeding failed: %v", err)
	}

	requests, err := s.SampleRequests(ctx, *numRequests)
	if err != nil {
		log.Fatalf("❌ Request seeding failed: %v", err)
	}

	log.Printf("✨ All done! Created %d requests.", len(requests))
	log.Printf("📧 Every seeded account (e.g. %s) has the password: %s",
		seed.UserEmail("requester"), fixtures.DefaultPassword)
}
