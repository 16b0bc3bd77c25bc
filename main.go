package main

import (
	"os"

	"clinic-api/core/logger"
	"clinic-api/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("Fatal:", err)
		os.Exit(1)
	}
}
