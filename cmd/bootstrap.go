package cmd

import (
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orders/config"
	"example.com/backstage/services/orders/internal/api"
	"example.com/backstage/services/orders/internal/cache"
	"example.com/backstage/services/orders/internal/calendar"
	"example.com/backstage/services/orders/internal/database"
	"example.com/backstage/services/orders/internal/documents"
	"example.com/backstage/services/orders/internal/folio"
	"example.com/backstage/services/orders/internal/inventory"
	"example.com/backstage/services/orders/internal/messaging"
	"example.com/backstage/services/orders/internal/metrics"
	"example.com/backstage/services/orders/internal/repositories"
	"example.com/backstage/services/orders/internal/search"
	"example.com/backstage/services/orders/internal/services"
	"example.com/backstage/services/orders/internal/tracing"
)

// deps is the wired dependency graph shared by the api and worker commands.
type deps struct {
	cfg      config.Config
	metrics  *metrics.Metrics
	tracer   tracing.Tracer
	bus      *messaging.AzureServiceBus
	cache    *cache.RedisCache
	services api.Services
}

// initDeps connects the infrastructure and wires the service layer.
func initDeps(cfg config.Config) (*deps, error) {
	db, readOnlyDB, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = cache.Disabled()
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = &tracing.NewRelicTracer{}
	}

	var indexer services.ClosedOrderIndexer
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	} else {
		indexer = elasticClient
	}

	bus, err := messaging.NewAzureServiceBus(cfg.Azure)
	if err != nil {
		return nil, err
	}

	metricsCollector := metrics.NewMetrics()

	orderRepo := repositories.NewOrderRepository(db, readOnlyDB)
	clientRepo := repositories.NewClientRepository(db, readOnlyDB)
	branchRepo := repositories.NewBranchRepository(db, readOnlyDB)
	productRepo := repositories.NewProductRepository(db, readOnlyDB)
	inventoryRepo := repositories.NewInventoryRepository(db, readOnlyDB)
	folioRepo := repositories.NewFolioRepository(db, readOnlyDB)

	sequencer := folio.NewSequencer(folioRepo, cfg.Orders.FolioPrefix, cfg.Orders.FolioBase)
	allocator := inventory.NewAllocator(inventoryRepo)
	deliveryRule := calendar.NewRule(cfg.Orders.CutoffHour)

	orderService := services.NewOrderService(db, orderRepo, clientRepo, branchRepo, productRepo,
		metricsCollector, tracer)
	confirmation := services.NewConfirmationEngine(db, orderRepo, clientRepo, sequencer, allocator,
		deliveryRule, metricsCollector, tracer)
	inventoryService := services.NewInventoryService(db, inventoryRepo, allocator, tracer)
	ingestor := services.NewWebhookIngestor(db, orderService, branchRepo, productRepo, redisCache,
		metricsCollector, tracer)
	dayClose := services.NewDayCloseProcessor(db, orderRepo, allocator, indexer, bus,
		cfg.Azure.EventsQueue, metricsCollector, tracer)
	renderer := documents.NewQueueRenderer(bus, cfg.Azure.DocumentsQueue)
	documentRunner := services.NewDocumentRunner(orderRepo, renderer, metricsCollector, tracer)

	return &deps{
		cfg:     cfg,
		metrics: metricsCollector,
		tracer:  tracer,
		bus:     bus,
		cache:   redisCache,
		services: api.Services{
			Orders:       orderService,
			Confirmation: confirmation,
			Inventory:    inventoryService,
			Webhook:      ingestor,
			DayClose:     dayClose,
			Documents:    documentRunner,
		},
	}, nil
}

// Close releases the external connections
func (d *deps) Close() {
	if err := d.bus.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Service Bus client")
	}
	if err := d.cache.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis cache")
	}
	d.tracer.Close()
}
