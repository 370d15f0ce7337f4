package main

import (
	"context"
	"time"

	"github.com/cppla/sharebox/config"
	"github.com/cppla/sharebox/models"
	"github.com/cppla/sharebox/routes"
	"github.com/cppla/sharebox/services"
	"github.com/cppla/sharebox/storage"
	"github.com/cppla/sharebox/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync() //nolint:errcheck

	db := config.InitDatabase(models.All()...)

	store := storage.NewFileSystemStore(cfg.UploadDir)
	if err := store.EnsureDir(); err != nil {
		utils.Sugar.Fatalf("upload directory %s unusable: %v", cfg.UploadDir, err)
	}

	rc := utils.GetRedis()
	r := routes.SetupRouter(db, store, rc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var purger *services.Purger
	if cfg.PurgeExpiredEnabled {
		purger = services.NewPurger(db, store, utils.Logger, time.Duration(cfg.PurgeIntervalMinutes)*time.Minute)
		purger.Start(ctx)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	err := utils.GraceServer(ctx, ":"+cfg.AppPort, r, func() {
		cancel()
		if purger != nil {
			purger.Wait()
		}
	})
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
