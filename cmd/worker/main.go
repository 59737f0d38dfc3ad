package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classadmin/internal/config"
	"classadmin/internal/notify"
	"classadmin/internal/queue"
	"classadmin/internal/store"
	"classadmin/internal/submission"
)

// Worker consumes submission events and delivers webhook notifications.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema ensure failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classadmin:submissions")
	}

	repo := submission.NewRepository(db.Client)
	webhook := notify.New(cfg.WebhookURL, cfg.WebhookSkip)

	if webhook.Skip {
		log.Println("webhook delivery disabled (WEBHOOK_URL not set or WEBHOOK_SKIP=1)")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "submitted" && msg.Type != "graded" {
			continue
		}

		id := string(msg.Body)
		log.Printf("processing %s event for submission %s", msg.Type, id)

		sub, err := repo.Get(ctx, id)
		if err != nil {
			log.Printf("fetch submission %s failed: %v", id, err)
			continue
		}
		if sub == nil {
			log.Printf("submission %s no longer exists, skipping", id)
			continue
		}

		n := notify.Notification{
			Event:        msg.Type,
			AssignmentID: sub.AssignmentID,
			SubmissionID: sub.ID,
			StudentID:    sub.StudentID,
		}
		if msg.Type == "graded" {
			n.Grade = sub.Grade
		}
		if err := webhook.Send(ctx, n); err != nil {
			log.Printf("webhook delivery failed for %s: %v", id, err)
			continue
		}
		log.Printf("submission %s notified", id)

		time.Sleep(10 * time.Millisecond) // Small delay between deliveries
	}

	log.Println("worker stopped")
}
