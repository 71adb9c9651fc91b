// Package pooldb durably binds discovered DEX pools to symbols, so a
// restart does not force rediscovery against the RPC pool before the first
// price can be served.
package pooldb

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sawpanic/signalcore/internal/opc"
)

// PoolRecord is the GORM model for one symbol's current pool binding.
type PoolRecord struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	Symbol         string    `gorm:"uniqueIndex;not null;size:32"`
	Address        string    `gorm:"not null;size:64"`
	Version        string    `gorm:"not null;size:8"`
	FeeTier        int       `gorm:"not null"`
	Token0         string    `gorm:"not null;size:64"`
	Token1         string    `gorm:"not null;size:64"`
	USDTLiquidity  float64   `gorm:"not null"`
	LiquidityScore float64   `gorm:"not null"`
	DiscoveredAt   time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (PoolRecord) TableName() string { return "pool_bindings" }

// Repository persists pool bindings through GORM+MySQL.
type Repository struct {
	db *gorm.DB
}

// NewRepository opens a MySQL connection and migrates the schema.
// dsn format: "user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
func NewRepository(dsn string) (*Repository, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to pool binding database: %w", err)
	}
	if err := db.AutoMigrate(&PoolRecord{}); err != nil {
		return nil, fmt.Errorf("migrating pool binding schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Upsert replaces the stored binding for a symbol with the freshly
// discovered pool.
func (r *Repository) Upsert(symbol string, p opc.PoolInfo) error {
	rec := PoolRecord{
		Symbol:         symbol,
		Address:        p.Address.Hex(),
		Version:        string(p.Version),
		FeeTier:        p.FeeTier,
		Token0:         p.Token0.Hex(),
		Token1:         p.Token1.Hex(),
		USDTLiquidity:  p.EstimatedUSDTLiquid,
		LiquidityScore: p.LiquidityScore,
		DiscoveredAt:   p.DiscoveredAt,
	}
	result := r.db.Where(PoolRecord{Symbol: symbol}).
		Assign(rec).
		FirstOrCreate(&rec)
	if result.Error != nil {
		return fmt.Errorf("upserting pool binding for %s: %w", symbol, result.Error)
	}
	return nil
}

// Get loads the last known binding for a symbol, if any.
func (r *Repository) Get(symbol string) (*PoolRecord, error) {
	var rec PoolRecord
	result := r.db.Where("symbol = ?", symbol).First(&rec)
	if result.Error != nil {
		return nil, fmt.Errorf("loading pool binding for %s: %w", symbol, result.Error)
	}
	return &rec, nil
}

// All loads every stored pool binding, used to warm the connector's
// in-memory map before the first discovery pass completes.
func (r *Repository) All() ([]PoolRecord, error) {
	var recs []PoolRecord
	result := r.db.Find(&recs)
	if result.Error != nil {
		return nil, fmt.Errorf("loading pool bindings: %w", result.Error)
	}
	return recs, nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db handle: %w", err)
	}
	return sqlDB.Close()
}
