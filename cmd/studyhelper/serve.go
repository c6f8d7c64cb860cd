package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/data/blobStore"
	"github.com/akolanti/StudyHelper/internal/data/store"
	jobmodel "github.com/akolanti/StudyHelper/internal/domain/jobModel"
	"github.com/akolanti/StudyHelper/internal/handlers"
	"github.com/akolanti/StudyHelper/internal/job"
	"github.com/akolanti/StudyHelper/internal/middleware"
	"github.com/akolanti/StudyHelper/internal/rag"
	"github.com/akolanti/StudyHelper/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/StudyHelper/internal/server"
	"github.com/akolanti/StudyHelper/internal/worker"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload, catalog and chat API with the ingest workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := opts.settings
			if listenAddr != "" {
				settings.Server.ListenAddr = listenAddr
			}
			return serve(settings)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen-addr", "", "server listen address (overrides server.listen_addr)")
	return cmd
}

func serve(settings config.Settings) error {
	logger := logger_i.NewLogger("main")

	var (
		requestCount      int64
		workerWaitGroup   sync.WaitGroup
		stopWorkerChannel = make(chan bool, 1)
	)

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	blobs, err := blobStore.NewFileStorage(settings.Server.BlobRoot, settings.Server.PublicBaseURL)
	if err != nil {
		return err
	}

	//init job service, job store and document store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		BlobStore:         blobs,
	}
	if jobStore := store.GetRedisJobStore(serviceContext, settings.Redis); jobStore != nil {
		serviceConfig.JobStore = jobStore
	}
	if documentStore := store.GetRedisDocumentStore(serviceContext, settings.Redis); documentStore != nil {
		serviceConfig.DocumentStore = documentStore
	}
	if serviceConfig.JobStore == nil || serviceConfig.DocumentStore == nil {
		if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			return errors.New("redis stores are offline")
		}
		logger.Error("Redis stores are offline, falling back to in-memory stores")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.DocumentStore = store.InitInMemoryDocumentStore()
	}
	service := job.InitJobService(serviceConfig)
	logger.Info("Starting job service")

	vectorDB := qdrantDB.GetQuadrantClient(serviceContext, settings.Qdrant)
	embeddingService, llmProvider, err := rag.NewProviders(serviceContext, settings.LLM)
	if err != nil || vectorDB == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		logger.Debug("Available services", "VectorDB", vectorDB != nil, "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return errors.New("external services unavailable")
	}

	ragService := rag.NewService(vectorDB, llmProvider, embeddingService, blobs)

	handlers.InitJobHandler(service, ragService)
	middleware.Init(settings.Server)
	if settings.Server.AuthToken == "" {
		logger.Warn("No auth token configured, bearer auth is off")
	}

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(settings.Server.ListenAddr)

	<-stopExecution
	logger.Info("Server stopped")
	return nil
}
