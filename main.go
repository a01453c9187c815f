package main

import (
	"time"

	"github.com/cppla/forumkit/config"
	"github.com/cppla/forumkit/models"
	"github.com/cppla/forumkit/routes"
	"github.com/cppla/forumkit/services"
	"github.com/cppla/forumkit/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	utils.InitRedis(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB)

	db := config.InitDatabase(
		&models.User{},
		&models.Category{},
		&models.Forum{},
		&models.Post{},
		&models.Reaction{},
		&models.Report{},
		&models.PostEdit{},
	)

	r := routes.SetupRouter(db)

	// Repair counter drift in the background (best-effort)
	services.StartReconciler(db, time.Duration(cfg.ReconcileIntervalMinutes)*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
