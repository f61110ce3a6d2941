package config

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/amrabdelsalam/madrasti/internal/models"
	"github.com/amrabdelsalam/madrasti/internal/paytabs"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
}

func LoadConfig() (*Config, error) {
	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
	}, nil
}

// LoadPayTabsConfig reads the merchant profile from the environment. The
// client itself never touches env vars, so tests can construct one directly.
func LoadPayTabsConfig() paytabs.Config {
	return paytabs.Config{
		ProfileID: os.Getenv("PAYTABS_PROFILE_ID"),
		ServerKey: os.Getenv("PAYTABS_SERVER_KEY"),
		ClientKey: os.Getenv("PAYTABS_CLIENT_KEY"),
		BaseURL:   os.Getenv("PAYTABS_BASE_URL"),
		Currency:  os.Getenv("PAYTABS_CURRENCY"),
		Country:   os.Getenv("PAYTABS_COUNTRY"),
		City:      os.Getenv("PAYTABS_CITY"),
		State:     os.Getenv("PAYTABS_STATE"),
		Zip:       os.Getenv("PAYTABS_ZIP"),
		Phone:     os.Getenv("PAYTABS_PHONE"),
	}
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	// TranslateError maps unique violations to gorm.ErrDuplicatedKey; the
	// purchase ledger depends on that to detect concurrent purchases.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Category{},
		&models.Course{},
		&models.Chapter{},
		&models.Attachment{},
		&models.UserProgress{},
		&models.Purchase{},
		&models.Payment{},
	)
	if err != nil {
		return nil, err
	}

	seedRoles(db)
	seedCategories(db)

	return db, nil
}

func seedRoles(db *gorm.DB) {
	roles := []models.Role{
		{Name: "student"},
		{Name: "teacher"},
		{Name: "admin"},
	}

	for _, role := range roles {
		var existingRole models.Role
		result := db.Where("name = ?", role.Name).First(&existingRole)
		if result.Error != nil {
			db.Create(&role)
		}
	}
}

func seedCategories(db *gorm.DB) {
	categories := []string{
		"Computer Science",
		"Music",
		"Fitness",
		"Photography",
		"Accounting",
		"Engineering",
		"Filming",
	}

	for _, name := range categories {
		var existing models.Category
		result := db.Where("name = ?", name).First(&existing)
		if result.Error != nil {
			db.Create(&models.Category{Name: name})
		}
	}
}
