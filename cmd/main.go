package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/blockchain"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/config"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/handler"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/repository"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/scheduler"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/service"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/logger"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := initDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database: ", err)
	}
	defer closeDatabase(db)

	stepRepo := repository.NewStepRepository(db)
	poolRepo := repository.NewPoolRepository(db)
	tierRepo := repository.NewTierRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	userRepo := repository.NewUserWalletRepository(db)
	miningRepo := repository.NewMiningRepository(db)

	chainClient, err := blockchain.NewClient(&cfg.Chain)
	if err != nil {
		logger.Fatal("Failed to create blockchain client: ", err)
	}
	defer chainClient.Close()

	signer, err := blockchain.NewSigner(cfg.Signer.PrivateKey)
	if err != nil {
		logger.Fatal("Failed to load signer: ", err)
	}
	logger.Info("Loaded distribution signer: ", signer.Address().Hex())

	fitnessSvc := service.NewFitnessService(stepRepo, cfg.Rewards.DailyGoalSteps)
	poolSvc := service.NewPoolService(stepRepo, poolRepo, userRepo,
		cfg.Rewards.PoolAStepThreshold, cfg.Rewards.PoolBStepThreshold)
	rewardSvc := service.NewRewardService(poolRepo, tierRepo)
	settlementSvc := service.NewSettlementService(chainClient, signer, txRepo, userRepo,
		common.HexToAddress(cfg.Chain.MiningContract),
		cfg.Rewards.BatchLimit, cfg.Rewards.TokenDecimals, cfg.Rewards.Currency)
	ledgerSvc := service.NewLedgerService(txRepo, tierRepo, cfg.Rewards.Currency)

	distScheduler := scheduler.NewDistributionScheduler(rewardSvc, settlementSvc, tierRepo, miningRepo, cfg.Rewards.DistributionCron)
	if err := distScheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler: ", err)
	}
	defer distScheduler.Stop()

	router := setupHTTPRouter(fitnessSvc, poolSvc, ledgerSvc, miningRepo, distScheduler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting on port ", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error: ", err)
	}

	logger.Info("Server stopped")
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	// TranslateError maps duplicate-key violations to
	// gorm.ErrDuplicatedKey, which pool admission relies on.
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	return db, nil
}

func closeDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get database instance: ", err)
		return
	}
	sqlDB.Close()
}

func setupHTTPRouter(
	fitnessSvc *service.FitnessService,
	poolSvc *service.PoolService,
	ledgerSvc *service.LedgerService,
	miningRepo *repository.MiningRepository,
	distScheduler *scheduler.DistributionScheduler,
) http.Handler {
	router := http.NewServeMux()

	fitnessHandler := handler.NewFitnessHandler(fitnessSvc)
	poolHandler := handler.NewPoolHandler(poolSvc)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc)
	miningHandler := handler.NewMiningHandler(miningRepo)
	distHandler := handler.NewDistributionHandler(distScheduler)

	router.HandleFunc("/api/steps/update", fitnessHandler.UpdateSteps)
	router.HandleFunc("/api/steps/range", fitnessHandler.GetRange)
	router.HandleFunc("/api/steps/stats/", fitnessHandler.GetStats)
	router.HandleFunc("/api/steps/weekly/", fitnessHandler.GetWeeklyGoal)
	router.HandleFunc("/api/pools/a/join", poolHandler.JoinPoolA)
	router.HandleFunc("/api/pools/b/join", poolHandler.JoinPoolB)
	router.HandleFunc("/api/pools/active", poolHandler.GetActivePools)
	router.HandleFunc("/api/transactions/", ledgerHandler.GetByUser)
	router.HandleFunc("/api/rewards/lastndays", ledgerHandler.GetLastNDaysRewards)
	router.HandleFunc("/api/mining/status", miningHandler.Status)
	router.HandleFunc("/api/distribute", distHandler.Trigger)
	router.HandleFunc("/health", handler.HandleHealth)

	return router
}
