package main

import (
	"log"

	"fanova-be/internal/config"
	"fanova-be/internal/model"
	"fanova-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	log.Printf("Step 2: Running AutoMigrate for %d tables...", len(model.All()))
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Creating views and functions...")
	postMigrationSQL := []string{
		`CREATE OR REPLACE FUNCTION set_current_timestamp_updated_at() RETURNS trigger LANGUAGE plpgsql AS $$
		DECLARE _new_value TIMESTAMP WITH TIME ZONE;
		BEGIN
		  _new_value := now();
		  IF NEW.updated_at IS DISTINCT FROM _new_value THEN NEW.updated_at = _new_value; END IF;
		  RETURN NEW;
		END; $$;`,

		`DROP TRIGGER IF EXISTS set_profiles_updated_at ON profiles;`,
		`CREATE TRIGGER set_profiles_updated_at BEFORE UPDATE ON profiles
		 FOR EACH ROW EXECUTE FUNCTION set_current_timestamp_updated_at();`,

		// Monthly credit flow per user, for support and finance queries.
		`CREATE OR REPLACE VIEW user_credit_summary AS
		 SELECT ct.user_id, p.email, date_trunc('month', ct.created_at) AS month,
		        SUM(CASE WHEN ct.amount > 0 THEN ct.amount ELSE 0 END) AS granted,
		        SUM(CASE WHEN ct.amount < 0 THEN -ct.amount ELSE 0 END) AS spent
		 FROM credit_transactions ct
		 LEFT JOIN profiles p ON p.id = ct.user_id
		 GROUP BY ct.user_id, p.email, date_trunc('month', ct.created_at);`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: Database migration completed.")
}
