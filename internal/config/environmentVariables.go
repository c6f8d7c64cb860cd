package config

import (
	"log/slog"
	"time"
)

const (
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an internals in-memory store
	TRACE_ID_KEY                    = "traceId"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5
	CacheSimilarityCutoff           = 0.97

	//session core
	PDFContentType          = "application/pdf"
	UploadStatusClearDelay  = 3 * time.Second
	UploadSuccessMessage    = "Uploaded!"
	UploadFailedMessage     = "Upload failed"
	InvalidFileTypeMessage  = "Please select a PDF file"
	CatalogFailedMessage    = "Failed to load documents"
	ChatFallbackError       = "Failed to get response. Please try again."
	SessionEventBufferDepth = 256

	//TODO:this will differ based on the request and provider
	EmbeddingOutputDimensionality int32 = 1536
	EmbeddingDBName                     = "study-notes"
	SemanticCacheDBName                 = "semantic-cache"
	SearchResultLimit                   = 5

	//ingestion
	MaxChunkSize       = 1000 // characters
	ChunkOverlap       = 150
	MinChunkLength     = 50
	MinDocumentText    = 50
	EmbeddingBatchSize = 100
	RateLimitBackoff   = 5 * time.Second
	PageExtractTimeout = 10 * time.Second
	MaxUploadSize      = 32 << 20 //32mb

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	JobTimeout                      = 5 * time.Minute
	ChatTimeout                     = 30 * time.Second

	//serverTimeouts
	ReadTimeout            = 15 * time.Second
	WriteTimeout           = 60 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//job requests buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantUseTLS   = false //set for https
	QdrantPoolSize = 1     //2-5 is preferred for prod according to documentation

	ModelTemperature float32 = 0.7
	ModelContext             = "You are a helpful study assistant. Use the provided context to answer the question. " +
		"Always cite the source file name when using information from the context."
	NoNotesContext = "No relevant study notes found."

	//client transport
	ClientTimeout       = 2 * time.Minute
	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis has 16 DB we can use
	RedisJobStore      = 0
	RedisDocumentStore = 1

	//redis timeouts
	RedisJobStoreTTL   = 24 * time.Hour
	RedisDialTimeout   = 3 * time.Second
	RedisIOTimeout     = 30 * time.Second
	RedisDocumentIndex = "user_documents:"
	RedisDocumentKey   = "document:"
	RedisStorageKeyRef = "storage_key:"
)
