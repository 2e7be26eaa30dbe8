package main

import (
	"flag"
	"fmt"
	"os"

	"rpi-diario/core/appbootstrap"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the YAML config file")
	flag.Parse()

	if err := appbootstrap.Run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "rpi-diario: %v\n", err)
		os.Exit(1)
	}
}
