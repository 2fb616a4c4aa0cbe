package main

import (
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"

	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional, the environment is used as is without one.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalln(err)
	}

	a, err := InitializeApp()
	if err != nil {
		log.Fatalln(err)
	}

	a.Info("Starting application")
	if err := a.Run(); err != nil {
		a.Error("Error running application", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
}
