// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/campaignify/xenocrm-backend/internal/controller"
	"github.com/campaignify/xenocrm-backend/internal/db"
	"github.com/campaignify/xenocrm-backend/internal/queue"
	"github.com/campaignify/xenocrm-backend/internal/repository"
	"github.com/campaignify/xenocrm-backend/internal/scheduler"
	"github.com/campaignify/xenocrm-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	conn, err := db.Connect()
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	customerRepo := &repository.CustomerRepository{DB: conn}
	segmentRepo := &repository.SegmentRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	messageRepo := &repository.MessageRepository{DB: conn}

	// Dispatch transport: RabbitMQ when configured, in-process otherwise.
	var q queue.Queue
	if url := os.Getenv("AMQP_URL"); url != "" {
		amqpQueue, err := queue.DialAMQP(url)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer amqpQueue.Close()
		q = amqpQueue
	} else {
		imq := queue.NewInMemoryQueue()
		queue.StartDeliverySubscriber(imq, messageRepo, queue.MockSender)
		q = imq
	}

	segmentService := &service.SegmentService{
		SegmentRepo:  segmentRepo,
		CustomerRepo: customerRepo,
	}

	maxInFlight, _ := strconv.Atoi(os.Getenv("DISPATCH_CONCURRENCY"))
	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		SegmentRepo:  segmentRepo,
		CustomerRepo: customerRepo,
		MessageRepo:  messageRepo,
		Segments:     segmentService,
		Dispatcher:   &queue.QueueDispatcher{Queue: q},
		MaxInFlight:  maxInFlight,
	}

	statsService := &service.StatsService{
		CampaignRepo: campaignRepo,
		SegmentRepo:  segmentRepo,
		MessageRepo:  messageRepo,
		Segments:     segmentService,
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		StatsService:    statsService,
	}
	segmentController := &controller.SegmentController{
		SegmentService: segmentService,
	}
	customerController := &controller.CustomerController{
		CustomerRepo: customerRepo,
	}

	// Scheduled-campaign trigger
	interval, _ := time.ParseDuration(os.Getenv("SCHEDULER_INTERVAL"))
	go scheduler.New(campaignService, campaignRepo, interval).Run(context.Background())

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaignStats)
	r.Post("/campaigns/{id}/schedule", campaignController.ScheduleCampaign)
	r.Post("/campaigns/{id}/execute", campaignController.ExecuteCampaign)
	r.Post("/campaigns/{id}/personalized-preview", campaignController.PersonalizedPreview)

	// Segment routes
	r.Post("/segments", segmentController.CreateSegment)
	r.Get("/segments", segmentController.ListSegments)
	r.Get("/segments/{id}/audience", segmentController.PreviewAudience)
	r.Get("/segments/{id}/audience/count", segmentController.AudienceCount)

	// Customer routes
	r.Get("/customers", customerController.ListCustomers)
	r.Get("/customers/{id}", customerController.GetCustomer)
	r.Post("/customers/import", customerController.ImportCustomers)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Println("🚀 Server running on", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
