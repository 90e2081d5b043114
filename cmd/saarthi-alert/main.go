package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saarthi-alert/internal/config"
	"saarthi-alert/internal/consumer"
	"saarthi-alert/internal/database"
	"saarthi-alert/internal/geofence"
	httpapi "saarthi-alert/internal/http"
	"saarthi-alert/internal/logger"
	"saarthi-alert/internal/mqtt"
	"saarthi-alert/internal/notifier"
	"saarthi-alert/internal/repository"
	"saarthi-alert/internal/service"
	"saarthi-alert/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "saarthi-alert")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	// 启动时探测一次 emergency_contacts 表结构，后续按能力走不同查询
	capability, err := repository.DetectContactsCapability(ctx, db)
	if err != nil {
		log.Warn("Failed to detect emergency contacts capability", zap.Error(err))
	}
	log.Info("Emergency contacts capability",
		zap.Bool("has_table", capability.HasTable),
		zap.Bool("has_is_active", capability.HasIsActiveColumn),
	)

	devices := repository.NewDevicesRepository(db, log)
	users := repository.NewUsersRepository(db, log)
	events := repository.NewEventsRepository(db, log)
	thresholds := repository.NewThresholdsRepository(db, cfg.Alert, log)
	locations := repository.NewLocationsRepository(db, log)
	trips := repository.NewTripsRepository(db, log)
	guardians := repository.NewGuardiansRepository(db, capability, log)
	zones := repository.NewSafeZonesRepository(db, log)
	notificationLogs := repository.NewNotificationLogsRepository(db, log)

	presence := store.NewPresenceStore(store.NewRedisKV(redisClient), cfg.Alert.DeviceLastSeenTTL, log)

	whatsapp := notifier.NewWhatsAppClient(cfg.WhatsApp, log)
	dispatcher := notifier.NewDispatcher(whatsapp, notificationLogs, log)

	evaluator := geofence.NewEvaluator(zones, events, guardians, users, dispatcher, cfg.Alert.GeofenceCooldown, log)

	alertService := service.NewAlertService(
		cfg.Alert,
		devices,
		users,
		events,
		thresholds,
		locations,
		trips,
		guardians,
		presence,
		evaluator,
		dispatcher,
		log,
	)

	router := httpapi.NewRouter(log)
	router.RegisterDeviceRoutes(httpapi.NewDeviceHandler(alertService, log))
	router.RegisterAppRoutes(httpapi.NewLocationHandler(alertService, log), httpapi.NewAlertHandler(alertService, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// MQTT 接入通道按配置启用
	var mqttConsumer *consumer.MQTTConsumer
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Disconnect()

		mqttConsumer = consumer.NewMQTTConsumer(cfg, mqttClient, alertService, log)
		go func() {
			if err := mqttConsumer.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("Service error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if mqttConsumer != nil {
		_ = mqttConsumer.Stop(shutdownCtx)
	}
	_ = srv.Stop(shutdownCtx)

	log.Info("saarthi-alert stopped")
}
