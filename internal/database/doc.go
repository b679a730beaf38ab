// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (sqlite or postgres), migrations
//	├── users/           # User accounts
//	├── reports/         # Car sale reports and price estimates
//	└── audit/           # Audit event log
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type over *gorm.DB:
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	usersRepo := users.NewRepository(db.DB)
//	reportsRepo := reports.NewRepository(db.DB)
//
//	user, err := usersRepo.FindOne(ctx, 1)
//
// Connections are opened with TranslateError enabled, so unique violations
// arrive as gorm.ErrDuplicatedKey regardless of driver. Repositories map
// them, and gorm.ErrRecordNotFound, to their own sentinel errors.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Register the entity in Migrate
//  5. Add compile-time interface checks where a consumer declares one
package database
