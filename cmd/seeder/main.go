package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/cartwheelhq/cartwheel/internal/config"
	"github.com/cartwheelhq/cartwheel/internal/database"
	"github.com/cartwheelhq/cartwheel/internal/models"
)

func main() {
	// Command line flags
	productFile := flag.String("products", "", "CSV file of catalog products (barcode,name,brand)")
	dryRun := flag.Bool("dry-run", false, "Preview changes without writing to database")
	demo := flag.Bool("demo", false, "Create a demo user with a sample shopping list")
	flag.Parse()

	// Load .env
	godotenv.Load()

	// Load config
	cfg := config.Load()

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	if *productFile != "" {
		if err := seedProducts(ctx, db, *productFile, *dryRun); err != nil {
			log.Fatalf("Product import failed: %v", err)
		}
	}

	if *demo {
		if *dryRun {
			log.Println("Dry run: skipping demo data creation")
		} else if err := seedDemoData(ctx, db); err != nil {
			log.Fatalf("Demo data creation failed: %v", err)
		}
	}

	log.Println("Seeding complete")
}

// seedProducts imports catalog products from a CSV with columns
// barcode,name,brand (brand optional)
func seedProducts(ctx context.Context, db *database.DB, path string, dryRun bool) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	imported := 0
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(record) < 2 {
			skipped++
			continue
		}

		barcode := strings.TrimSpace(record[0])
		name := strings.TrimSpace(record[1])
		if barcode == "" || name == "" || barcode == "barcode" {
			skipped++
			continue
		}

		var brand *string
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			b := strings.TrimSpace(record[2])
			brand = &b
		}

		if dryRun {
			log.Printf("Would import: %s (%s)", name, barcode)
			imported++
			continue
		}

		_, err = db.CreateProduct(ctx, &models.CreateProductRequest{
			Barcode: barcode,
			Name:    name,
			Brand:   brand,
		})
		if err != nil {
			log.Printf("Warning: failed to import product %s: %v", barcode, err)
			skipped++
			continue
		}
		imported++
	}

	log.Printf("Imported %d product(s), skipped %d", imported, skipped)
	return nil
}

// seedDemoData creates a demo account with a sample list ready to verify
func seedDemoData(ctx context.Context, db *database.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user, err := db.CreateUser(ctx, "demo@example.com", "demo", string(hash))
	if err != nil {
		if err == database.ErrEmailTaken {
			log.Println("Demo user already exists, skipping")
			return nil
		}
		return err
	}

	barcode := "4002971021301"
	list, err := db.CreateList(ctx, user.ID, &models.CreateListRequest{
		Name: "Weekly groceries",
		Items: []models.CreateListItemData{
			{Name: "Milk 1L", Quantity: 2, Unit: "pcs", CatalogBarcode: &barcode},
			{Name: "Bread", Quantity: 1, Unit: "pcs"},
			{Name: "Apples", Quantity: 1.5, Unit: "kg"},
			{Name: "Pasta Barilla", Quantity: 3, Unit: "pcs"},
		},
	})
	if err != nil {
		return err
	}

	log.Printf("Created demo user %s with list %d (%d items)", user.Email, list.ID, len(list.Items))
	return nil
}
