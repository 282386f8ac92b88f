package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/config"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	pg "github.com/kileldylan/afrinet-project/internal/infra/db/postgres"
	"github.com/kileldylan/afrinet-project/internal/infra/logging"
	"github.com/kileldylan/afrinet-project/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	packageUC := usecase.NewPackageUseCase(pg.NewPackageRepo(pool), logger)

	// If packages already exist, do nothing
	existing, err := packageUC.List(ctx)
	if err != nil {
		log.Fatalf("list packages: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d packages already present. No changes.\n", len(existing))
		for _, p := range existing {
			fmt.Printf("  - %s %s (%d %s, %s KES)\n", p.Code, p.Name, p.DurationValue, p.DurationUnit, p.Price.StringFixed(2))
		}
		return
	}

	seed := []struct {
		Code    string
		Name    string
		Price   int64
		Value   int
		Unit    model.DurationUnit
		Speed   string
		Popular bool
	}{
		{"P1", "1 Hour unlimited", 10, 1, model.DurationHours, "3M/3M", false},
		{"P2", "6 Hours unlimited", 20, 6, model.DurationHours, "5M/5M", true},
		{"P3", "12 Hours unlimited", 30, 12, model.DurationHours, "8M/8M", false},
		{"P4", "24 Hours unlimited", 50, 1, model.DurationDays, "10M/10M", false},
	}

	for _, s := range seed {
		p, err := model.NewPackage(uuid.NewString(), s.Code, s.Name, decimal.NewFromInt(s.Price), s.Value, s.Unit, s.Speed, s.Popular)
		if err != nil {
			log.Fatalf("build package %q: %v", s.Code, err)
		}
		if err := packageUC.Create(ctx, p); err != nil {
			log.Fatalf("create package %q: %v", s.Code, err)
		}
		fmt.Printf("seeded: %s %s (%d min, %s KES)\n", p.Code, p.Name, p.DurationMinutes(), p.Price.StringFixed(2))
	}

	fmt.Println("Seeding complete.")
}
