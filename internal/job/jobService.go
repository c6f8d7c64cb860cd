package job

import (
	"github.com/akolanti/StudyHelper/internal/data/blobStore"
	"github.com/akolanti/StudyHelper/internal/domain/jobModel"
)

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	DocumentStore     jobModel.DocumentStore
	BlobStore         blobStore.Storage
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	DocumentStore     jobModel.DocumentStore
	BlobStore         blobStore.Storage
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		DocumentStore:     cfg.DocumentStore,
		BlobStore:         cfg.BlobStore,
	}
}
