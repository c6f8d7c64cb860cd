package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/internal/session/events"
	"github.com/akolanti/StudyHelper/internal/session/transport"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

// Putter stores a whole file at a destination url.
type Putter interface {
	Put(ctx context.Context, destination, contentType string, body []byte) (int, error)
}

// Pipeline moves one picked file to object storage. Only one upload runs at
// a time and a new pick always replaces the current task.
type Pipeline struct {
	mu         sync.Mutex
	task       sessionModel.UploadTask
	nextID     uint64
	inFlight   bool
	clearTimer *time.Timer

	putter     Putter
	baseURL    string
	clearDelay time.Duration
	publisher  events.Publisher
	onSuccess  func(sessionModel.UploadResult)
	log        *logger_i.Logger
}

type Option func(*Pipeline)

func WithPublisher(p events.Publisher) Option {
	return func(pl *Pipeline) {
		if p != nil {
			pl.publisher = p
		}
	}
}

func WithClearDelay(d time.Duration) Option {
	return func(pl *Pipeline) {
		pl.clearDelay = d
	}
}

// OnSuccess registers the upload-succeeded listener. It runs on the
// submitting goroutine after the state is updated.
func OnSuccess(fn func(sessionModel.UploadResult)) Option {
	return func(pl *Pipeline) {
		pl.onSuccess = fn
	}
}

func New(putter Putter, baseURL string, opts ...Option) *Pipeline {
	p := &Pipeline{
		task:       sessionModel.UploadTask{State: sessionModel.Idle{}},
		putter:     putter,
		baseURL:    baseURL,
		clearDelay: config.UploadStatusClearDelay,
		publisher:  events.Discard{},
		log:        logger_i.NewLogger("upload"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Current() sessionModel.UploadTask {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.task
}

func (p *Pipeline) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// SelectFile starts a new task for file. A file not declared as a PDF fails
// the task immediately and is not kept.
func (p *Pipeline) SelectFile(file *sessionModel.LocalFile) sessionModel.UploadTask {
	p.mu.Lock()
	p.stopClearLocked()
	p.nextID++
	p.task = sessionModel.UploadTask{ID: p.nextID, File: file, State: sessionModel.Validating{}}
	p.publishLocked()

	if file == nil || file.ContentType != config.PDFContentType {
		p.task = sessionModel.UploadTask{
			ID:    p.nextID,
			State: sessionModel.Failed{Reason: config.InvalidFileTypeMessage},
		}
	} else {
		p.task.State = sessionModel.Idle{}
	}
	task := p.task
	p.publishLocked()
	p.mu.Unlock()

	if file != nil {
		p.log.Debug("file selected", "task", task.ID, "name", file.Name, "status", task.Status())
	}
	return task
}

// Submit uploads task's file for userID. It fails with ErrMissingInput when
// there is no file or user and with ErrUploadInProgress while another upload
// runs; neither changes any state. A transport failure is returned and also
// recorded on the task as a generic message.
func (p *Pipeline) Submit(ctx context.Context, task sessionModel.UploadTask, userID string) (sessionModel.UploadResult, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return sessionModel.UploadResult{}, sessionModel.ErrUploadInProgress
	}
	if task.File == nil || userID == "" {
		p.mu.Unlock()
		return sessionModel.UploadResult{}, sessionModel.ErrMissingInput
	}
	p.inFlight = true
	if p.task.ID == task.ID {
		p.stopClearLocked()
		p.task.State = sessionModel.Uploading{}
		p.publishLocked()
	}
	p.mu.Unlock()

	file := task.File
	destination := transport.UploadDestination(p.baseURL, userID, file.Name)
	log := p.log.With("task", task.ID, "name", file.Name)
	log.Info("upload started", "bytes", len(file.Data))

	status, err := p.putter.Put(ctx, destination, config.PDFContentType, file.Data)
	result := sessionModel.UploadResult{Location: destination, StatusCode: status}

	p.mu.Lock()
	p.inFlight = false
	current := p.task.ID == task.ID
	if current {
		if err != nil {
			p.task.State = sessionModel.Failed{Reason: config.UploadFailedMessage}
		} else {
			p.task.File = nil
			p.task.State = sessionModel.Succeeded{Result: result}
			p.scheduleClearLocked(task.ID)
		}
		p.publishLocked()
	}
	p.mu.Unlock()

	if err != nil {
		log.Error("upload failed", "error", err)
		return result, fmt.Errorf("upload %s: %w", file.Name, err)
	}
	log.Info("upload succeeded", "status", status, "current", current)
	if p.onSuccess != nil {
		p.onSuccess(result)
	}
	return result, nil
}

func (p *Pipeline) scheduleClearLocked(id uint64) {
	p.clearTimer = time.AfterFunc(p.clearDelay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.task.ID != id {
			return
		}
		if _, ok := p.task.State.(sessionModel.Succeeded); !ok {
			return
		}
		p.task = sessionModel.UploadTask{ID: id, State: sessionModel.Idle{}}
		p.clearTimer = nil
		p.publishLocked()
	})
}

func (p *Pipeline) stopClearLocked() {
	if p.clearTimer != nil {
		p.clearTimer.Stop()
		p.clearTimer = nil
	}
}

// publishLocked runs under p.mu; the publisher must not block.
func (p *Pipeline) publishLocked() {
	p.publisher.Publish(events.Event{Type: events.EventUpload, Upload: p.task})
}

// Close stops a pending status clear.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopClearLocked()
}
