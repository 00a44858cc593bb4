package models

import "gorm.io/gorm"

// AllModels returns all models for migration
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Tool{},
		&Tag{},
		&Prompt{},
		&PromptTag{},
		&Like{},
		&Favourite{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&Prompt{}, "Tags", &PromptTag{}); err != nil {
		return err
	}
	return db.AutoMigrate(AllModels()...)
}
