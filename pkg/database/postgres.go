package database

import (
	"log"

	"github.com/studiodans/dance-booking/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.ClassTemplate{},
		&models.WeeklySlot{},
		&models.ClassInstance{},
		&models.Pass{},
		&models.Entitlement{},
		&models.Booking{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Partial unique index: prevents double-booking (same user + same instance)
	// unless cancelled
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_active
		ON bookings (instance_id, user_id)
		WHERE status <> 'cancelled'
	`)

	return db
}
