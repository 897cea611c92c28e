package main

import (
	"flag"
	"log"

	"sds/internal/di"
	"sds/internal/structures"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	_, err := di.InitApp(&structures.CliFlags{
		ConfigPath: *configPath,
		DebugMode:  *debug,
	})
	if err != nil {
		log.Fatalf("failed to start: %s", err)
	}
}
