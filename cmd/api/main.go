// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shinnn23/watermark-tool/internal/fonts"
	"github.com/shinnn23/watermark-tool/internal/kafka"
	"github.com/shinnn23/watermark-tool/internal/mwlogger"
	"github.com/shinnn23/watermark-tool/internal/repository"
	"github.com/shinnn23/watermark-tool/internal/service"
	"github.com/shinnn23/watermark-tool/internal/storage"
	"github.com/shinnn23/watermark-tool/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// read envs/config
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	// start the logger
	zlog.InitConsole()
	err := zlog.SetLevel("info")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// interrupt listener - the context for the whole app
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// connect to DB and apply migrations
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second)

	// connect to object storage
	strg := storage.NewImgStorage(appConfig, 10*time.Second)
	// repo instance
	repo := repository.NewPostgresBatchRepo(dbConn)

	// font registry: built-ins plus whatever FONTS_DIR holds
	fontLib := fonts.NewLibrary()
	if dir := appConfig.GetString("FONTS_DIR"); dir != "" {
		added, err := fontLib.LoadDir(dir)
		if err != nil {
			log.Fatalf("Failed to load fonts from %q: %v", dir, err)
		}
		log.Printf("Loaded %d extra fonts from %q", added, dir)
	}

	// wait for kafka and connect as producer
	broker := appConfig.GetString("KAFKA_BROKER")
	kafka.WaitKafkaReady(broker)
	topic := appConfig.GetString("KAFKA_TOPIC")
	kafka.InitKafkaTopics(ctx, broker, 10*time.Second, topic)
	pub := wbfkafka.NewProducer([]string{broker}, topic)

	// service instance
	var svc BatchAPIService = service.NewBatchService(repo, pub, strg, fontLib)
	// HTTP handler instance
	handlers := transport.NewBatchHandler(svc)
	// server setup
	mode := appConfig.GetString("GIN_MODE")
	engine := ginext.New(mode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.GET("/fonts", handlers.GetFonts)
	engine.POST("/preview", handlers.Preview)          // synchronous single-image preview
	engine.POST("/batches", handlers.Create)           // batch creation
	engine.GET("/batches/:id", handlers.GetBatch)      // batch status with per-item outcome
	engine.GET("/batches/:id/result", handlers.LoadResult) // ZIP download
	engine.GET("/batches", handlers.GetAllBatches)     // listing with pagination and sorting
	engine.DELETE("/batches/:id", handlers.Delete)     // removal
	engine.Static("/web", "./internal/web")

	srv := &http.Server{
		Addr:    ":" + appConfig.GetString("APP_PORT"),
		Handler: mwlogger.NewMWLogger(engine),
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// background loop re-publishing stuck batches
	go recoveryLoop(ctx, svc)

	// wait for cancellation to close db and kafka connections gracefully
	<-ctx.Done()

	shutdown(pub, dbConn)
	log.Println("Exiting app...")
}

func recoveryLoop(ctx context.Context, svc BatchAPIService) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("Recovery loop crashed:", r)
		}
	}()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.ReviveOrphans(context.Background(), 20)
		}
	}
}

func shutdown(pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-producer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
