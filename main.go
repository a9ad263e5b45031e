package main

import (
	"flag"
	"log"
)

// Build details injected with -ldflags.
var (
	GitCommit string
	GitTag    string
	BuildTime string
)

func main() {
	configFile := flag.String("config", "./config.yml", "path to the yaml configuration file")
	envFile := flag.String("env", "./config.env", "path to the optional environment file")
	flag.Parse()

	app, err := NewApp(*configFile, *envFile)
	if err != nil {
		log.Fatal("books catalog failed to initialize: ", err)
	}
	if err = app.Run(); err != nil {
		log.Fatal("books catalog exited. check logs for more details: ", err)
	}
}
