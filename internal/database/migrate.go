package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Models 按外键依赖顺序列出全部表。
func Models() []any {
	return []any{
		&User{},
		&Portfolio{},
		&PortfolioProject{},
		&PortfolioExperience{},
		&Resume{},
		&ResumeExperience{},
		&ResumeEducation{},
		&ResumeSkill{},
		&ResumeProject{},
	}
}

// Migrate 执行 AutoMigrate。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
