package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shinnn23/watermark-tool/internal/fonts"
	"github.com/shinnn23/watermark-tool/internal/kafka"
	"github.com/shinnn23/watermark-tool/internal/repository"
	"github.com/shinnn23/watermark-tool/internal/service"
	"github.com/shinnn23/watermark-tool/internal/storage"
	"github.com/shinnn23/watermark-tool/internal/worker"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

func main() {
	// read envs/config
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	// connect to DB
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	// connect to object storage
	strg := storage.NewImgStorage(appConfig, 10*time.Second)
	// repo instance
	repo := repository.NewPostgresBatchRepo(dbConn)

	// font registry must mirror the API's, or queued batches reference
	// fonts the worker doesn't know
	fontLib := fonts.NewLibrary()
	if dir := appConfig.GetString("FONTS_DIR"); dir != "" {
		added, err := fontLib.LoadDir(dir)
		if err != nil {
			log.Fatalf("Failed to load fonts from %q: %v", dir, err)
		}
		log.Printf("Loaded %d extra fonts from %q", added, dir)
	}

	// service instance
	var svc worker.BatchWorkerService = service.NewBatchService(repo, NoopPublisher{}, strg, fontLib)

	// wait for kafka and connect as reader
	broker := appConfig.GetString("KAFKA_BROKER")
	kafka.WaitKafkaReady(broker)
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	topic := appConfig.GetString("KAFKA_TOPIC")
	groupID := appConfig.GetString("KAFKA_GROUPID")
	cons := wbfkafka.NewConsumer([]string{broker}, topic, groupID)

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cons.StartConsuming(ctx, queue, retryStrategy)

	resPrefix := appConfig.GetString("RESULT_KEY")
	if resPrefix == "" {
		resPrefix = "res/"
	}
	go worker.NewWorkerInstance(strg, svc, fontLib, queue, cons, resPrefix).StartWorker(ctx)

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()

	shutdown(cons, dbConn)
	log.Println("Exiting worker...")
}

func shutdown(cons *wbfkafka.Consumer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := cons.Close(); err != nil {
		log.Println("Failed to close Kafka-reader:", err)
	}
	log.Println("Kafka-consumer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
