package main

import (
	"fmt"
	"os"

	"shopapi/internal/config"
	"shopapi/internal/infra/db"
)

const usage = "usage: migrate [up|down|version]"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	dsn := cfg.DSN()

	switch os.Args[1] {
	case "up":
		err = db.MigrateUp(dsn)
	case "down":
		err = db.MigrateDown(dsn)
	case "version":
		var (
			v     uint
			dirty bool
		)
		v, dirty, err = db.MigrateVersion(dsn)
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", v, dirty)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
