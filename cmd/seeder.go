package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/workspace-management/internal/focus"
	"github.com/frahmantamala/workspace-management/internal/rbac"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the standard focuses",
	Long:  `Seed the standard role-scoped focuses every deployment starts with.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm connection: %v", err)
		}

		if clearData {
			if err := db.Exec("DELETE FROM focuses WHERE type = ?", focus.TypeStandard).Error; err != nil {
				log.Fatalf("failed to clear standard focuses: %v", err)
			}
			fmt.Println("Cleared existing standard focuses")
		}

		for _, f := range standardFocuses() {
			var exists int
			row := db.Raw("SELECT 1 FROM focuses WHERE name = ? AND type = ?", f.Name, focus.TypeStandard).Row()
			if err := row.Scan(&exists); err == nil {
				fmt.Println("focus already exists, skipping:", f.Name)
				continue
			}

			if err := db.Create(f).Error; err != nil {
				log.Fatalf("failed to seed focus %q: %v", f.Name, err)
			}
			fmt.Println("Seeded focus:", f.Name)
		}
	},
}

func standardFocuses() []*focus.Focus {
	now := time.Now()
	build := func(name, description string, roles focus.RoleList, isDefault bool) *focus.Focus {
		return &focus.Focus{
			ID:            uuid.NewString(),
			Name:          name,
			Description:   description,
			Type:          focus.TypeStandard,
			AssignedRoles: roles,
			IsDefault:     isDefault,
			IsActive:      true,
			CreatedBy:     0, // system
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	userUp := focus.RoleList{rbac.RoleUser, rbac.RoleManager, rbac.RoleAdmin}
	managerUp := focus.RoleList{rbac.RoleManager, rbac.RoleAdmin}
	adminOnly := focus.RoleList{rbac.RoleAdmin}

	return []*focus.Focus{
		build("Performance Dashboard", "Key metrics at a glance", userUp, true),
		build("Exception Management", "Investigate and resolve flagged exceptions", managerUp, false),
		build("Inventory Management", "Stock levels and movements", managerUp, false),
		build("Set-up", "System configuration and user administration", adminOnly, false),
	}
}
