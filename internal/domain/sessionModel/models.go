package sessionModel

import (
	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
)

type UploadStatus string
type TurnRole string
type Pane string

// DocumentRef is a weak reference to a catalog entry (its url). It may point at
// a document the latest catalog no longer contains.
type DocumentRef string

const (
	UploadIdle       UploadStatus = "Idle"
	UploadValidating UploadStatus = "Validating"
	UploadUploading  UploadStatus = "Uploading"
	UploadSucceeded  UploadStatus = "Succeeded"
	UploadFailed     UploadStatus = "Failed"

	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
	RoleError     TurnRole = "error"

	PaneDocuments Pane = "documents"
	PaneViewer    Pane = "viewer"
	PaneChat      Pane = "chat"
)

// LocalFile is a user-picked file. ContentType is what the picker declared,
// it is never sniffed from Data.
type LocalFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadState is a closed set: Idle, Validating, Uploading, Succeeded, Failed.
// Each variant carries only the data valid for it.
type UploadState interface {
	Status() UploadStatus
	Message() string
	uploadState()
}

type Idle struct{}
type Validating struct{}
type Uploading struct{}
type Succeeded struct{ Result UploadResult }
type Failed struct{ Reason string }

func (Idle) Status() UploadStatus       { return UploadIdle }
func (Validating) Status() UploadStatus { return UploadValidating }
func (Uploading) Status() UploadStatus  { return UploadUploading }
func (Succeeded) Status() UploadStatus  { return UploadSucceeded }
func (Failed) Status() UploadStatus     { return UploadFailed }

func (Idle) Message() string       { return "" }
func (Validating) Message() string { return "" }
func (Uploading) Message() string  { return "" }
func (Succeeded) Message() string  { return config.UploadSuccessMessage }
func (f Failed) Message() string   { return f.Reason }

func (Idle) uploadState()       {}
func (Validating) uploadState() {}
func (Uploading) uploadState()  {}
func (Succeeded) uploadState()  {}
func (Failed) uploadState()     {}

type UploadResult struct {
	Location   string
	StatusCode int
}

// UploadTask is replaced, never reused: every pick gets a new ID.
type UploadTask struct {
	ID    uint64
	File  *LocalFile
	State UploadState
}

func (t UploadTask) Status() UploadStatus {
	if t.State == nil {
		return UploadIdle
	}
	return t.State.Status()
}

func (t UploadTask) Message() string {
	if t.State == nil {
		return ""
	}
	return t.State.Message()
}

func (t UploadTask) FileName() string {
	if t.File == nil {
		return ""
	}
	return t.File.Name
}

// CatalogState is the load state of the catalog, separate from the documents
// it holds so a failure never touches the list.
type CatalogState interface {
	catalogState()
}

type CatalogIdle struct{}
type CatalogLoading struct{}
type CatalogLoaded struct{}
type CatalogFailed struct{ Message string }

func (CatalogIdle) catalogState()    {}
func (CatalogLoading) catalogState() {}
func (CatalogLoaded) catalogState()  {}
func (CatalogFailed) catalogState()  {}

type CatalogSnapshot struct {
	Documents []commonModels.DocumentRecord
	State     CatalogState
}

func (s CatalogSnapshot) Loading() bool {
	_, ok := s.State.(CatalogLoading)
	return ok
}

func (s CatalogSnapshot) Error() string {
	if f, ok := s.State.(CatalogFailed); ok {
		return f.Message
	}
	return ""
}

type ChatTurn struct {
	Role TurnRole `json:"role"`
	Text string   `json:"text"`
}

func UserTurn(text string) ChatTurn      { return ChatTurn{Role: RoleUser, Text: text} }
func AssistantTurn(text string) ChatTurn { return ChatTurn{Role: RoleAssistant, Text: text} }
func ErrorTurn(text string) ChatTurn     { return ChatTurn{Role: RoleError, Text: text} }

// KeyPress is a key event from the chat input.
type KeyPress struct {
	Key   string
	Shift bool
}

const KeyEnter = "Enter"

// SubmitsMessage is true for a confirmation key that does not also ask for a
// line break.
func (k KeyPress) SubmitsMessage() bool {
	return k.Key == KeyEnter && !k.Shift
}

func ParsePane(name string) (Pane, bool) {
	switch Pane(name) {
	case PaneDocuments, PaneViewer, PaneChat:
		return Pane(name), true
	}
	return "", false
}

// SessionView is derived for the presentation layer on every read.
type SessionView struct {
	ActivePane     Pane
	Theme          string
	Documents      []commonModels.DocumentRecord
	CatalogLoading bool
	CatalogError   string
	Selection      DocumentRef
	HasSelection   bool
	Transcript     []ChatTurn
	Pending        bool
	Input          string
	Upload         UploadTask
}
