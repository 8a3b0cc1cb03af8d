package main

import (
	"fmt"
	"os"

	"institution-manager/config"
	"institution-manager/database"
	"institution-manager/database/seeders"

	"github.com/spf13/pflag"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run tools/migrate.go migrate            - Run dynamic migrations")
		fmt.Println("  go run tools/migrate.go plan               - Print pending operations")
		fmt.Println("  go run tools/migrate.go generate file.sql  - Write pending operations to a file")
		fmt.Println("  go run tools/migrate.go create-admin --keycloak-id ID [--email E --first-name F --last-name L --dni D]")
		return
	}

	settings, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	db, err := database.Connect(settings.Database)
	if err != nil {
		fmt.Printf("❌ Failed to connect: %v\n", err)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "migrate":
		fmt.Println("🚀 Running dynamic database migrations...")
		if err := database.Migrate(db); err != nil {
			fmt.Printf("❌ Migration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Migration completed successfully!")

	case "plan":
		operations, err := database.NewDynamicMigrator(db).DetectChanges()
		if err != nil {
			fmt.Printf("❌ Failed to detect changes: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(database.Plan(operations))

	case "generate":
		if len(os.Args) < 3 {
			fmt.Println("Please provide a filename for the migration file")
			fmt.Println("Example: go run tools/migrate.go generate migration.sql")
			return
		}

		filename := os.Args[2]
		fmt.Printf("📝 Generating migration file: %s\n", filename)

		if err := database.GenerateMigrationFile(db, filename); err != nil {
			fmt.Printf("❌ Failed to generate migration file: %v\n", err)
			os.Exit(1)
		}

	case "create-admin":
		if err := createAdmin(db, os.Args[2:]); err != nil {
			fmt.Printf("❌ Failed to create admin: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Available commands: migrate, plan, generate, create-admin")
	}
}

// createAdmin provisions the first administrator so a fresh deployment can
// reach the admin routes before any realm role mapping exists.
func createAdmin(db *gorm.DB, args []string) error {
	var admin seeders.AdminUser
	flagSet := pflag.NewFlagSet("create-admin", pflag.ContinueOnError)
	flagSet.StringVar(&admin.KeycloakID, "keycloak-id", "", "subject of the user in the identity provider (required)")
	flagSet.StringVar(&admin.Email, "email", "", "email address")
	flagSet.StringVar(&admin.FirstName, "first-name", "", "first name")
	flagSet.StringVar(&admin.LastName, "last-name", "", "last name")
	flagSet.StringVar(&admin.DNI, "dni", "", "national id")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if err := database.Migrate(db); err != nil {
		return err
	}
	result, err := seeders.CreateAdmin(db, admin)
	if err != nil {
		return err
	}
	if result.UserCreated {
		fmt.Printf("✅ Created user id=%d\n", result.UserID)
	} else {
		fmt.Printf("User already exists id=%d\n", result.UserID)
	}
	if result.RoleAssigned {
		fmt.Println("✅ Assigned admin role")
	} else {
		fmt.Println("User already has admin role")
	}
	return nil
}
