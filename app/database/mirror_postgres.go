package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"YellowbellPOS/app/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// MirrorDocument is one collection snapshot held by the remote mirror
type MirrorDocument struct {
	Collection string    `gorm:"primaryKey;size:64" json:"collection"`
	Payload    string    `gorm:"type:jsonb;not null" json:"payload"`
	MirroredAt time.Time `gorm:"not null" json:"mirroredAt"`
}

func (MirrorDocument) TableName() string {
	return "mirror_documents"
}

// PostgresMirror replicates collection snapshots into a PostgreSQL database
type PostgresMirror struct {
	db *gorm.DB
}

// BuildDSN constructs the connection string. A URL wins over the individual fields.
func BuildDSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, cfg.Username, cfg.Password, cfg.Database, sslmode)
}

// OpenPostgresMirror connects to the mirror database and migrates its single table
func OpenPostgresMirror(cfg config.DatabaseConfig) (*PostgresMirror, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
	}

	db, err := gorm.Open(postgres.Open(BuildDSN(cfg)), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mirror database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get mirror database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&MirrorDocument{}); err != nil {
		return nil, fmt.Errorf("failed to migrate mirror database: %w", err)
	}

	log.Printf("✅ Mirror database connected: host=%s dbname=%s", cfg.Host, cfg.Database)
	return &PostgresMirror{db: db}, nil
}

// Name identifies the target in sync logs
func (m *PostgresMirror) Name() string {
	return config.MirrorTargetPostgres
}

// Replicate upserts the snapshot for collection
func (m *PostgresMirror) Replicate(ctx context.Context, collection string, payload []byte) error {
	doc := MirrorDocument{
		Collection: collection,
		Payload:    string(payload),
		MirroredAt: time.Now().UTC(),
	}
	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "mirrored_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", collection, err)
	}
	return nil
}

// Close closes the mirror connection
func (m *PostgresMirror) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
