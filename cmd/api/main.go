package main

import (
	"fmt"
	"os"
	"time"

	"shopapi/internal/auth"
	"shopapi/internal/config"
	"shopapi/internal/handler"
	"shopapi/internal/infra/db"
	infraRepo "shopapi/internal/infra/repository"
	"shopapi/internal/logger"
	"shopapi/internal/metrics"
	"shopapi/internal/server"
	"shopapi/internal/usecase"
	"shopapi/internal/validator"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

const bcryptCost = 12

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	//migrations/を適用
	if cfg.MigrateOnStart {
		if err := db.MigrateUp(cfg.DSN()); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if cfg.DBAutoMigrate {
		if err := infraRepo.AutoMigrate(gormDB); err != nil {
			return err
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	clock := &realClock{}

	//Usecase生成
	productUC := usecase.NewProductUsecase(productRepo, inventoryRepo, txm, clock, log, m)
	cartUC := usecase.NewCartUsecase(txm, cartRepo, cartItemRepo, userRepo, clock)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderItemRepo, clock)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)
	userUC := usecase.NewUserUsecase(
		userRepo,
		validator.NewUserValidator(),
		usecase.NewBcryptPasswordHasher(bcryptCost),
		auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL),
		clock,
		log,
	)

	//Handler生成
	srv := server.New(cfg, log, m, userRepo,
		handler.NewProductHandler(productUC),
		handler.NewCartHandler(cartUC),
		handler.NewOrderHandler(orderUC, auditUC),
		handler.NewUserHandler(userUC),
		handler.NewMeHandler(userUC, cartUC, orderUC),
	)

	//Server起動
	return srv.Run()
}
