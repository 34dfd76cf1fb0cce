package main

import (
	"github.com/cppla/quotaboard/config"
	"github.com/cppla/quotaboard/models"
	"github.com/cppla/quotaboard/routes"
	"github.com/cppla/quotaboard/services"
	"github.com/cppla/quotaboard/utils"
)

func main() {
	config.Load()
	cfg := config.Get()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() {
		_ = utils.Logger.Sync()
	}()
	defer utils.CloseRedis()

	db := config.InitDatabase(
		&models.User{},
		&models.Option{},
		&models.CheckInRecord{},
		&models.UserStreakState{},
		&models.RedemptionCode{},
		&models.RedemptionUsage{},
		&models.QuotaLog{},
	)

	clock, err := services.NewZoneClock(cfg.CheckInTimezone)
	if err != nil {
		utils.Sugar.Fatalf("invalid check-in timezone %q: %v", cfg.CheckInTimezone, err)
	}

	r := routes.SetupRouter(db, clock)

	utils.Sugar.Infof("quotaboard listening on :%s", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server exited: %v", err)
	}
}
