package main

import (
	"flag"
	"log"

	approuters "github.com/Felag1n/AudioBridge/internal/app_routers"
	"github.com/Felag1n/AudioBridge/internal/configuration"
)

func main() {
	configPath := flag.String("c", "config.yml", "comma-separated config file list")
	flag.Parse()

	container, err := configuration.BuildContainer(*configPath)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Ensure cleanup on shutdown
	defer container.Close()

	approuters.StartServer(container)
}
