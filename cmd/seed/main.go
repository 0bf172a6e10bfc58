// Command seed loads a sample catalog and a demo customer into the database
// named by DATABASE_URL.
package main

import (
	"context"
	"errors"
	"log"

	"storefront/config"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type sampleProduct struct {
	name        string
	description string
	price       string
	stock       int
}

var catalog = []struct {
	category models.Category
	products []sampleProduct
}{
	{
		category: models.Category{Name: "Electronics", Description: "Phones, laptops and audio"},
		products: []sampleProduct{
			{"Noise Cancelling Headphones", "Over-ear wireless headphones with 30 hour battery", "399.99", 40},
			{"13-inch Laptop", "Lightweight laptop, 8GB RAM, 256GB SSD", "1099.99", 15},
			{"Smartphone", "6.1-inch display, 128GB storage", "849.99", 30},
		},
	},
	{
		category: models.Category{Name: "Fashion", Description: "Clothing, shoes and accessories"},
		products: []sampleProduct{
			{"White Sneakers", "Leather sneakers with cushioned sole", "89.99", 50},
			{"Denim Jacket", "Medium wash, classic fit", "65.99", 35},
		},
	},
	{
		category: models.Category{Name: "Groceries", Description: "Fresh food and household essentials"},
		products: []sampleProduct{
			{"Bananas (bunch)", "Organic bananas", "0.99", 200},
			{"Free-Range Eggs", "One dozen large eggs", "4.99", 80},
			{"Whole Wheat Bread", "Baked daily, no preservatives", "3.49", 4},
		},
	},
	{
		category: models.Category{Name: "Home & Kitchen", Description: "Furniture, decor and kitchenware"},
		products: []sampleProduct{
			{"Electric Kettle", "1.7L stainless steel kettle", "29.99", 25},
			{"Cast Iron Skillet", "Pre-seasoned 12-inch skillet", "39.99", 0},
		},
	},
}

func main() {
	cfg := config.Load()
	if err := util.InitLogger(cfg.Observ.LogOptions()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	if cfg.Database.InMemory() {
		logger.Fatal("Seeding needs a Postgres DATABASE_URL")
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	if err := seed(ctx, db); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
	logger.Info("Seeding complete")
}

// seed inserts the sample data. Categories that already exist are left alone
// together with their products, so the command can be rerun.
func seed(ctx context.Context, repo store.Repository) error {
	logger := util.GetLogger()

	demo := &models.Customer{Username: "demo", Email: "demo@example.com"}
	if err := repo.CreateCustomer(ctx, demo); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return err
	}

	for _, entry := range catalog {
		category := entry.category
		err := repo.CreateCategory(ctx, &category)
		if errors.Is(err, store.ErrDuplicate) {
			logger.Info("Category exists, skipping", zap.String("category", category.Name))
			continue
		}
		if err != nil {
			return err
		}

		// one transaction per category so a failure never leaves it half filled
		err = repo.WithTx(ctx, func(tx store.Repository) error {
			for _, p := range entry.products {
				product := &models.Product{
					CategoryID:  category.ID,
					Name:        p.name,
					Description: p.description,
					Price:       decimal.RequireFromString(p.price),
					Stock:       p.stock,
				}
				if err := tx.CreateProduct(ctx, product); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		logger.Info("Seeded category",
			zap.String("category", category.Name),
			zap.Int("products", len(entry.products)))
	}
	return nil
}
