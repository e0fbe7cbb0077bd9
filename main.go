package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/parish-ledger/backend/internal/audit"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/parish-ledger/backend/internal/router"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title			Parish Ledger
// @description	The backend for Parish Ledger, a membership and contribution tracking back office.

func main() {
	// Load configuration from a .env file when one exists
	_ = godotenv.Load()

	// gin uses debug as the default mode, we use release for
	// security reasons
	ginMode, ok := os.LookupEnv("GIN_MODE")
	if !ok {
		gin.SetMode("release")
	} else {
		gin.SetMode(ginMode)
	}

	// Log format can be explicitly set.
	// If it is not set, it defaults to human readable for development
	// and JSON for release
	logFormat, ok := os.LookupEnv("LOG_FORMAT")
	output := io.Writer(os.Stdout)
	if (!ok && gin.IsDebugging()) || (ok && logFormat == "human") {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if gin.IsDebugging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(output).With().Timestamp().Logger()

	dsn, ok := os.LookupEnv("DB_DSN")
	if !ok {
		// Create the data directory for the default database location
		err := os.MkdirAll(filepath.Join(".", "data"), os.ModePerm)
		if err != nil {
			log.Fatal().Msg(err.Error())
		}

		dsn = "data/gorm.db?_pragma=foreign_keys(1)"
	}

	err := models.Connect(dsn)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	// The audit recorder needs the database connection
	audit.Start(1024)
	defer audit.Close()

	r, err := router.Config()
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	router.AttachRoutes(r.Group("/"))

	if err := r.Run(); err != nil {
		log.Fatal().Msg(err.Error())
	}
}
