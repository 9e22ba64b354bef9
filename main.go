package main

import (
	"context"
	"log"
	"os"

	"sqlcodex/models"
	"sqlcodex/web"

	"github.com/rohanthewiz/logger"
)

func main() {
	logger.SetLogLevel("info")

	dbPath := os.Getenv("SQLCODEX_DB_PATH")
	if dbPath == "" {
		dbPath = "sqlcodex.db"
	}

	if err := models.InitDB(dbPath); err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer models.CloseDB()

	if err := models.InitJWT(); err != nil {
		log.Fatal("Failed to initialize JWT: ", err)
	}

	role := web.Role(os.Getenv("SQLCODEX_ROLE"))
	switch role {
	case web.RoleSpoke, web.RoleHub, web.RoleBoth:
	case "":
		role = web.RoleSpoke
	default:
		log.Fatal("Invalid SQLCODEX_ROLE, expected spoke, hub, or both")
	}

	// The sync runner only makes sense where a local knowledge base lives.
	if role != web.RoleHub {
		syncCfg, err := models.LoadSyncConfig()
		if err != nil {
			log.Fatal("Failed to load sync config: ", err)
		}
		if syncCfg.Enabled {
			runner, err := models.NewSyncRunner(models.Local(), syncCfg)
			if err != nil {
				log.Fatal("Failed to initialize sync runner: ", err)
			}
			runner.Start(context.Background())
			defer runner.Stop()
		}
	}

	address := os.Getenv("SQLCODEX_ADDRESS")
	if address == "" {
		address = ":8000"
	}

	srv := web.NewServer(address, role)
	log.Fatal(web.Run(srv, address))
}
