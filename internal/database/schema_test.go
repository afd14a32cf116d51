package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const migrationsDir = "../../migrations"

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(migrationsDir, name))
	if err != nil {
		t.Fatalf("Failed to read migration %s: %v", name, err)
	}
	return string(content)
}

func TestMigrationFilesExist(t *testing.T) {
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	expectedMigrations := []string{
		"00001_create_categories_table.sql",
		"00002_create_users_table.sql",
		"00003_create_products_table.sql",
		"00004_create_sales_table.sql",
		"00005_create_purchases_table.sql",
		"00006_create_updated_at_trigger.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", file.Name(), err)
			continue
		}

		contentStr := string(content)

		// Check for goose Up directive
		if !strings.Contains(contentStr, "-- +goose Up") {
			t.Errorf("Migration file %s missing '-- +goose Up' directive", file.Name())
		}

		// Check for goose Down directive
		if !strings.Contains(contentStr, "-- +goose Down") {
			t.Errorf("Migration file %s missing '-- +goose Down' directive", file.Name())
		}

		// Check for StatementBegin/End
		if !strings.Contains(contentStr, "-- +goose StatementBegin") {
			t.Errorf("Migration file %s missing '-- +goose StatementBegin' directive", file.Name())
		}

		if !strings.Contains(contentStr, "-- +goose StatementEnd") {
			t.Errorf("Migration file %s missing '-- +goose StatementEnd' directive", file.Name())
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	expectedTables := map[string]string{
		"categories": "00001_create_categories_table.sql",
		"users":      "00002_create_users_table.sql",
		"products":   "00003_create_products_table.sql",
		"sales":      "00004_create_sales_table.sql",
		"purchases":  "00005_create_purchases_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		contentStr := readMigration(t, migrationFile)

		createTableStmt := "CREATE TABLE IF NOT EXISTS " + tableName
		if !strings.Contains(contentStr, createTableStmt) {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}

		dropTableStmt := "DROP TABLE IF EXISTS " + tableName
		if !strings.Contains(contentStr, dropTableStmt) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestUsersTableHasRoleConstraint(t *testing.T) {
	contentStr := readMigration(t, "00002_create_users_table.sql")

	for _, column := range []string{"user_id TEXT PRIMARY KEY", "email VARCHAR(255) UNIQUE", "password VARCHAR", "photo VARCHAR"} {
		if !strings.Contains(contentStr, column) {
			t.Errorf("Users table missing column definition: %s", column)
		}
	}

	for _, role := range []string{"SUPER_ADMIN", "ADMIN", "STAFF"} {
		if !strings.Contains(contentStr, "'"+role+"'") {
			t.Errorf("Users role constraint missing value: %s", role)
		}
	}
}

func TestProductsTableHasRequiredColumns(t *testing.T) {
	contentStr := readMigration(t, "00003_create_products_table.sql")

	requiredColumns := []string{
		"product_id TEXT PRIMARY KEY",
		"name VARCHAR",
		"price NUMERIC",
		"rating NUMERIC",
		"stock_quantity INTEGER",
		"category_id TEXT",
		"photo VARCHAR",
		"location VARCHAR",
		"sku VARCHAR",
		"supplier VARCHAR",
		"updated_at TIMESTAMP",
	}

	for _, column := range requiredColumns {
		if !strings.Contains(contentStr, column) {
			t.Errorf("Products table missing required column definition: %s", column)
		}
	}

	if !strings.Contains(contentStr, "FOREIGN KEY (category_id)") {
		t.Error("Products table missing foreign key constraint to categories")
	}

	if !strings.Contains(contentStr, "CHECK (stock_quantity >= 0)") {
		t.Error("Products table missing non-negative stock constraint")
	}
}

func TestMovementTablesRestrictProductDeletion(t *testing.T) {
	for _, name := range []string{"00004_create_sales_table.sql", "00005_create_purchases_table.sql"} {
		contentStr := readMigration(t, name)
		if !strings.Contains(contentStr, "REFERENCES products(product_id) ON DELETE RESTRICT") {
			t.Errorf("%s does not restrict deletion of referenced products", name)
		}
	}
}
