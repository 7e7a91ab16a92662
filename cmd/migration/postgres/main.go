package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/blocknative/walletprovider/journal/transport/postgres"
)

type flags struct {
	databaseURL string
	version     uint
	verbose     bool
}

var cf = flags{}

func init() {
	flag.StringVar(&cf.databaseURL, "db", "", "Database URL")
	flag.BoolVar(&cf.verbose, "verbose", true, "Verbosity of logs during run")
	flag.UintVar(&cf.version, "version", 0, "Version parameter sets the journal schema to specified revision (up or down)")
	flag.Parse()
}

func main() {
	log.SetOutput(os.Stdout)
	if cf.databaseURL == "" {
		log.Fatal(errors.New("database url is not set"))
	}

	if cf.verbose && cf.version > 0 {
		log.Println("Migrating to version: ", cf.version)
	}

	changed, err := postgres.Migrate(cf.databaseURL, cf.version)
	if err != nil {
		log.Fatal(err)
	}
	if cf.verbose && !changed {
		log.Println("No change")
	}
}
