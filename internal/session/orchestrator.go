package session

import (
	"context"
	"errors"
	"sync"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/internal/session/catalog"
	"github.com/akolanti/StudyHelper/internal/session/conversation"
	"github.com/akolanti/StudyHelper/internal/session/events"
	"github.com/akolanti/StudyHelper/internal/session/selector"
	"github.com/akolanti/StudyHelper/internal/session/transport"
	"github.com/akolanti/StudyHelper/internal/session/upload"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

var _ Service = (*Orchestrator)(nil)

type Config struct {
	UserID        string
	ThemeMode     string
	UploadURL     string
	StrictCatalog bool
}

// Service is the full client-side surface. Every front-end (cli, repl, mcp)
// drives one of these.
type Service interface {
	Start(ctx context.Context) error
	SelectFile(file *sessionModel.LocalFile) sessionModel.UploadTask
	Upload(ctx context.Context) (sessionModel.UploadResult, error)
	Refresh(ctx context.Context) error
	Select(ref sessionModel.DocumentRef)
	Lookup() (commonModels.DocumentRecord, bool)
	SetPane(pane sessionModel.Pane)
	SetTheme(theme string)
	SetInput(text string)
	Ask(ctx context.Context, text string) error
	Send(ctx context.Context) error
	HandleKey(ctx context.Context, key sessionModel.KeyPress) (bool, error)
	View() sessionModel.SessionView
	Subscribe() (<-chan events.Event, func())
	Close()
}

// Backend is what the session needs from the remote services.
type Backend interface {
	upload.Putter
	catalog.Fetcher
	conversation.Asker
}

// Orchestrator composes the upload pipeline, catalog, selector and
// conversation for one user. A successful upload refreshes the catalog and
// a selection switches to the viewer pane.
type Orchestrator struct {
	cfg Config
	bus *events.Bus

	uploads      *upload.Pipeline
	catalog      *catalog.Store
	selector     *selector.Selector
	conversation *conversation.Session

	mu         sync.Mutex
	activePane sessionModel.Pane
	theme      string

	ctx    context.Context
	cancel context.CancelFunc
	log    *logger_i.Logger
}

func New(cfg Config, backend Backend) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:        cfg,
		bus:        events.New(),
		activePane: sessionModel.PaneDocuments,
		theme:      normalizeTheme(cfg.ThemeMode),
		ctx:        ctx,
		cancel:     cancel,
		log:        logger_i.NewLogger("session").With("user", cfg.UserID),
	}

	o.catalog = catalog.New(backend,
		catalog.WithPublisher(o.bus),
		catalog.WithStrictOrdering(cfg.StrictCatalog))
	o.uploads = upload.New(backend, cfg.UploadURL,
		upload.WithPublisher(o.bus),
		upload.OnSuccess(o.onUploadSucceeded))
	o.selector = selector.New(
		selector.WithPublisher(o.bus),
		selector.OnSelect(o.onDocumentSelected))
	o.conversation = conversation.New(backend, conversation.WithPublisher(o.bus))
	return o
}

// NewFromSettings wires an orchestrator to the HTTP endpoints in settings.
func NewFromSettings(settings config.ClientSettings, opts ...transport.Option) (*Orchestrator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	cfg := Config{
		UserID:        settings.UserID,
		ThemeMode:     settings.Theme,
		UploadURL:     settings.UploadURL,
		StrictCatalog: settings.StrictCatalog,
	}
	return New(cfg, transport.New(settings, opts...)), nil
}

// Start issues the initial catalog load and waits for it. A failed load is
// catalog state, not a start error.
func (o *Orchestrator) Start(ctx context.Context) error {
	err := o.catalog.Refresh(ctx, o.cfg.UserID)
	if errors.Is(err, sessionModel.ErrMissingInput) {
		return err
	}
	return nil
}

func (o *Orchestrator) SelectFile(file *sessionModel.LocalFile) sessionModel.UploadTask {
	return o.uploads.SelectFile(file)
}

func (o *Orchestrator) Upload(ctx context.Context) (sessionModel.UploadResult, error) {
	return o.uploads.Submit(ctx, o.uploads.Current(), o.cfg.UserID)
}

// Refresh is the manual retry for a failed catalog load. Like Start, a failed
// fetch only shows up as catalog state.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	err := o.catalog.Refresh(ctx, o.cfg.UserID)
	if errors.Is(err, sessionModel.ErrMissingInput) {
		return err
	}
	return nil
}

func (o *Orchestrator) Select(ref sessionModel.DocumentRef) {
	o.selector.Select(ref)
}

// SetPane switches the active pane. Unknown panes are ignored.
func (o *Orchestrator) SetPane(pane sessionModel.Pane) {
	if _, ok := sessionModel.ParsePane(string(pane)); !ok {
		o.log.Debug("ignored unknown pane", "pane", pane)
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activePane = pane
	o.bus.Publish(events.Event{Type: events.EventPane, ActivePane: pane})
}

func (o *Orchestrator) SetTheme(theme string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.theme = normalizeTheme(theme)
}

func (o *Orchestrator) SetInput(text string) {
	o.conversation.SetInput(text)
}

func (o *Orchestrator) Ask(ctx context.Context, text string) error {
	return o.conversation.Ask(ctx, text, o.cfg.UserID)
}

func (o *Orchestrator) Send(ctx context.Context) error {
	return o.conversation.Send(ctx, o.cfg.UserID)
}

func (o *Orchestrator) HandleKey(ctx context.Context, key sessionModel.KeyPress) (bool, error) {
	return o.conversation.HandleKey(ctx, key, o.cfg.UserID)
}

func (o *Orchestrator) View() sessionModel.SessionView {
	o.mu.Lock()
	pane, theme := o.activePane, o.theme
	o.mu.Unlock()

	snap := o.catalog.Snapshot()
	ref, selected := o.selector.Current()
	return sessionModel.SessionView{
		ActivePane:     pane,
		Theme:          theme,
		Documents:      snap.Documents,
		CatalogLoading: snap.Loading(),
		CatalogError:   snap.Error(),
		Selection:      ref,
		HasSelection:   selected,
		Transcript:     o.conversation.Transcript(),
		Pending:        o.conversation.Pending(),
		Input:          o.conversation.Input(),
		Upload:         o.uploads.Current(),
	}
}

// Lookup resolves the current selection against the current catalog.
func (o *Orchestrator) Lookup() (commonModels.DocumentRecord, bool) {
	return o.selector.Lookup(o.catalog.Snapshot().Documents)
}

func (o *Orchestrator) Subscribe() (<-chan events.Event, func()) {
	return o.bus.Subscribe()
}

// Wait blocks until background catalog refreshes are done.
func (o *Orchestrator) Wait() {
	o.catalog.Wait()
}

// Close stops background work and closes every Subscribe channel.
func (o *Orchestrator) Close() {
	o.cancel()
	o.uploads.Close()
	o.catalog.Wait()
	o.bus.Close()
}

func (o *Orchestrator) onUploadSucceeded(result sessionModel.UploadResult) {
	o.log.Debug("upload succeeded, refreshing catalog", "location", result.Location)
	if err := o.catalog.RefreshAsync(o.ctx, o.cfg.UserID); err != nil {
		o.log.Warn("catalog refresh skipped", "error", err)
	}
}

func (o *Orchestrator) onDocumentSelected(sessionModel.DocumentRef) {
	o.SetPane(sessionModel.PaneViewer)
}

func normalizeTheme(theme string) string {
	if theme == ThemeLight {
		return ThemeLight
	}
	return ThemeDark
}
