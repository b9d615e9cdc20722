package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	membershipdm "github.com/altayar/tourism-backend/internal/core/datamodel/membership"
	"github.com/altayar/tourism-backend/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed reference data",
	Long:  `Seed membership plans and other reference data`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSeeder(); err != nil {
			fmt.Fprintf(os.Stderr, "Seeding failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func yearDuration() *int {
	days := 365
	return &days
}

// Cashback rates are stored as percents (2.0 means 2%); the reward math
// divides by 100 when crediting.
func defaultPlans() []membershipdm.Plan {
	tiers := []struct {
		code          string
		name          string
		priceCents    int64
		initialPoints int64
		cashbackRate  float64
		multiplier    float64
	}{
		{"BRONZE", "Bronze", 100000, 1000, 2.0, 1.0},
		{"SILVER", "Silver", 200000, 1500, 3.0, 1.2},
		{"GOLD", "Gold", 500000, 4000, 5.0, 1.5},
		{"PLATINUM", "Platinum", 1000000, 8500, 7.0, 2.0},
		{"VIP", "VIP", 2000000, 18000, 10.0, 2.5},
		{"DIAMOND", "Diamond", 5000000, 47000, 15.0, 3.0},
	}

	plans := make([]membershipdm.Plan, 0, len(tiers))
	for i, t := range tiers {
		plans = append(plans, membershipdm.Plan{
			ID:               uuid.NewString(),
			TierCode:         t.code,
			TierName:         t.name,
			TierOrder:        i + 1,
			PriceCents:       t.priceCents,
			Currency:         "USD",
			DurationDays:     yearDuration(),
			InitialPoints:    t.initialPoints,
			CashbackRate:     t.cashbackRate,
			PointsMultiplier: t.multiplier,
			IsActive:         true,
		})
	}
	return plans
}

func runSeeder() error {
	cfg, err := loadConfig(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	log := logger.L()

	db, err := gorm.Open(gormpostgres.Open(cfg.Database.Source), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if clearData {
		log.Warn("clearing membership plans before seeding")
		if err := db.Exec("DELETE FROM membership_plans").Error; err != nil {
			return fmt.Errorf("clear plans: %w", err)
		}
	}

	// Re-runs update rates in place instead of duplicating tiers.
	plans := defaultPlans()
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tier_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"tier_name", "tier_order", "price_cents", "currency", "duration_days",
			"initial_points", "cashback_rate", "points_multiplier", "is_active",
		}),
	}).Create(&plans).Error
	if err != nil {
		return fmt.Errorf("seed plans: %w", err)
	}

	log.Info("membership plans seeded", "count", len(plans))
	return nil
}
