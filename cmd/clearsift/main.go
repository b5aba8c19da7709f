package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/clearsift/clearsift/internal/cli"
)

func main() {
	// Local runs keep credentials in a .env file; CI sets real env vars.
	_ = godotenv.Load()

	os.Exit(cli.Run())
}
