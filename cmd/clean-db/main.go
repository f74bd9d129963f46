// Command-line tool to clean the database by dropping all tables in the public schema.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"InternHub-backend/internal/config"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/logger"
)

const dropAll = `
DO $$
	DECLARE
		r RECORD;
	BEGIN
		FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
			EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
		END LOOP;
	END $$;
`

func main() {
	log := logger.New("info", "text")

	fmt.Println("WARNING: This command will DROP ALL TABLES in the 'public' schema of your database.")
	fmt.Print("This action is irreversible. Do you want to continue? (yes/no): ")

	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		log.WithError(err).Fatal("failed to read input")
	}
	if strings.TrimSpace(strings.ToLower(input)) != "yes" {
		fmt.Println("Operation cancelled.")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	// NewDBInstance migrates on open, which is harmless right before a drop.
	db, err := database.NewDBInstance(cfg.DB, logger.Discard())
	if err != nil {
		log.WithError(err).Fatal("database failed to initialize")
	}
	defer db.Close()

	if err := db.Exec(dropAll).Error; err != nil {
		log.WithError(err).Fatal("failed to execute drop command")
	}

	log.WithFields(logrus.Fields{"host": cfg.DB.Host, "database": cfg.DB.Name}).Info("all tables dropped")
}
