// Development helper: wipes the courier data set on the remote
// database. Run with: go run scripts/reset_db.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("========================================")
	fmt.Println("   Reset Remote Database for Testing")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: This will DELETE ALL COURIER DATA!")
	fmt.Println()
	fmt.Println("This will:")
	fmt.Println("  - Delete all clients")
	fmt.Println("  - Delete all service records")
	fmt.Println("  - Delete all expenses")
	fmt.Println("  - Delete the service audit log")
	fmt.Println("  - Keep users and schema migrations")
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" {
		fmt.Println("Aborted.")
		return
	}

	godotenv.Load()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		envOr("DB_USER", "postgres"),
		envOr("DB_PASSWORD", "postgres"),
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_NAME", "courier"),
	)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}
	defer pool.Close()

	tables := []string{"service_audit_log", "service_records", "expenses", "clients"}
	for _, table := range tables {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			log.Fatalf("failed to clear %s: %v", table, err)
		}
		fmt.Printf("  cleared %s\n", table)
	}

	fmt.Println()
	fmt.Println("Done. Local caches on client machines will reconcile on their next force sync.")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
