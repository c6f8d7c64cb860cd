// Package mcpserver exposes one study session as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/internal/session/selector"
	"github.com/akolanti/StudyHelper/internal/session/upload"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Session is the part of the orchestrator the tools drive.
type Session interface {
	Refresh(ctx context.Context) error
	SelectFile(file *sessionModel.LocalFile) sessionModel.UploadTask
	Upload(ctx context.Context) (sessionModel.UploadResult, error)
	Select(ref sessionModel.DocumentRef)
	Lookup() (commonModels.DocumentRecord, bool)
	Ask(ctx context.Context, text string) error
	View() sessionModel.SessionView
	Wait()
}

type tools struct {
	session Session
	log     *logger_i.Logger
}

// New registers list_documents, open_document, ask_question, upload_pdf and
// session_view against s.
func New(s Session, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "studyhelper", Version: version}, nil)
	t := &tools{session: s, log: logger_i.NewLogger("mcp")}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the user's uploaded study documents, newest first.",
	}, t.listDocuments)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "open_document",
		Description: "Select a document by url, id or file name and return where to view it.",
	}, t.openDocument)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Ask a question answered from the user's notes. The answer cites source file names.",
	}, t.askQuestion)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "upload_pdf",
		Description: "Upload a PDF to the user's notes, from a local path or base64 content.",
	}, t.uploadPDF)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_view",
		Description: "Show the current session: pane, selection, upload status and transcript.",
	}, t.sessionView)
	return server
}

// Run serves s over stdin/stdout until ctx ends or the client disconnects.
func Run(ctx context.Context, s Session, version string) error {
	return New(s, version).Run(ctx, &mcp.StdioTransport{})
}

type Document struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at,omitempty"`
}

type ListDocumentsInput struct{}

type ListDocumentsOutput struct {
	Documents []Document `json:"documents"`
}

type OpenDocumentInput struct {
	Document string `json:"document" jsonschema:"the document url, id or file name"`
}

type OpenDocumentOutput struct {
	Document Document `json:"document"`
}

type AskQuestionInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the notes"`
}

type AskQuestionOutput struct {
	Answer string `json:"answer"`
}

type UploadPDFInput struct {
	Path          string `json:"path,omitempty" jsonschema:"local path of the PDF"`
	Name          string `json:"name,omitempty" jsonschema:"file name when sending content_base64"`
	ContentBase64 string `json:"content_base64,omitempty" jsonschema:"base64 PDF bytes, used when path is empty"`
}

type UploadPDFOutput struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Location string `json:"location"`
}

type SessionViewInput struct{}

type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type SessionViewOutput struct {
	ActivePane     string     `json:"active_pane"`
	Theme          string     `json:"theme"`
	Documents      []Document `json:"documents"`
	CatalogLoading bool       `json:"catalog_loading"`
	CatalogError   string     `json:"catalog_error,omitempty"`
	Selection      string     `json:"selection,omitempty"`
	UploadStatus   string     `json:"upload_status"`
	UploadMessage  string     `json:"upload_message,omitempty"`
	Pending        bool       `json:"pending"`
	Transcript     []Turn     `json:"transcript"`
}

// refreshCatalog reloads the catalog. Failures come back as the catalog's
// own message, never the transport error.
func (t *tools) refreshCatalog(ctx context.Context) error {
	if err := t.session.Refresh(ctx); err != nil {
		t.log.Warn("catalog refresh failed", "error", err)
		return errors.New("the session has no user id")
	}
	if msg := t.session.View().CatalogError; msg != "" {
		return fmt.Errorf("%s, call list_documents to retry", msg)
	}
	return nil
}

func (t *tools) listDocuments(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if err := t.refreshCatalog(ctx); err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	return nil, ListDocumentsOutput{Documents: toDocuments(t.session.View().Documents)}, nil
}

func (t *tools) openDocument(ctx context.Context, _ *mcp.CallToolRequest, in OpenDocumentInput) (*mcp.CallToolResult, OpenDocumentOutput, error) {
	if in.Document == "" {
		return nil, OpenDocumentOutput{}, errors.New("document is required")
	}
	if len(t.session.View().Documents) == 0 {
		if err := t.refreshCatalog(ctx); err != nil {
			return nil, OpenDocumentOutput{}, err
		}
	}
	t.session.Select(selector.Resolve(t.session.View().Documents, in.Document))
	doc, ok := t.session.Lookup()
	if !ok {
		return nil, OpenDocumentOutput{}, fmt.Errorf("%s is not in the user's documents", in.Document)
	}
	return nil, OpenDocumentOutput{Document: toDocument(doc)}, nil
}

func (t *tools) askQuestion(ctx context.Context, _ *mcp.CallToolRequest, in AskQuestionInput) (*mcp.CallToolResult, AskQuestionOutput, error) {
	if err := t.session.Ask(ctx, in.Question); err != nil {
		if errors.Is(err, sessionModel.ErrMissingInput) {
			return nil, AskQuestionOutput{}, errors.New("question is required")
		}
		return nil, AskQuestionOutput{}, err
	}
	transcript := t.session.View().Transcript
	if len(transcript) == 0 {
		return nil, AskQuestionOutput{}, errors.New("no answer")
	}
	last := transcript[len(transcript)-1]
	if last.Role == sessionModel.RoleError {
		return nil, AskQuestionOutput{}, errors.New(last.Text)
	}
	return nil, AskQuestionOutput{Answer: last.Text}, nil
}

func (t *tools) uploadPDF(ctx context.Context, _ *mcp.CallToolRequest, in UploadPDFInput) (*mcp.CallToolResult, UploadPDFOutput, error) {
	file, err := localFile(in)
	if err != nil {
		return nil, UploadPDFOutput{}, err
	}
	if task := t.session.SelectFile(file); task.Status() == sessionModel.UploadFailed {
		return nil, UploadPDFOutput{}, errors.New(task.Message())
	}
	result, err := t.session.Upload(ctx)
	task := t.session.View().Upload
	if err != nil {
		t.log.Warn("upload tool failed", "name", file.Name, "error", err)
		if task.Message() != "" {
			return nil, UploadPDFOutput{}, errors.New(task.Message())
		}
		return nil, UploadPDFOutput{}, err
	}
	t.session.Wait()
	return nil, UploadPDFOutput{
		Status:   string(task.Status()),
		Message:  task.Message(),
		Location: result.Location,
	}, nil
}

func (t *tools) sessionView(_ context.Context, _ *mcp.CallToolRequest, _ SessionViewInput) (*mcp.CallToolResult, SessionViewOutput, error) {
	view := t.session.View()
	out := SessionViewOutput{
		ActivePane:     string(view.ActivePane),
		Theme:          view.Theme,
		Documents:      toDocuments(view.Documents),
		CatalogLoading: view.CatalogLoading,
		CatalogError:   view.CatalogError,
		UploadStatus:   string(view.Upload.Status()),
		UploadMessage:  view.Upload.Message(),
		Pending:        view.Pending,
		Transcript:     make([]Turn, 0, len(view.Transcript)),
	}
	if view.HasSelection {
		out.Selection = string(view.Selection)
	}
	for _, turn := range view.Transcript {
		out.Transcript = append(out.Transcript, Turn{Role: string(turn.Role), Text: turn.Text})
	}
	return nil, out, nil
}

func localFile(in UploadPDFInput) (*sessionModel.LocalFile, error) {
	if in.Path != "" {
		return upload.ReadLocalFile(in.Path)
	}
	if in.Name == "" || in.ContentBase64 == "" {
		return nil, errors.New("either path or name with content_base64 is required")
	}
	data, err := base64.StdEncoding.DecodeString(in.ContentBase64)
	if err != nil {
		return nil, fmt.Errorf("content_base64: %w", err)
	}
	return &sessionModel.LocalFile{
		Name:        in.Name,
		ContentType: upload.DeclaredType(in.Name),
		Data:        data,
	}, nil
}

func toDocuments(records []commonModels.DocumentRecord) []Document {
	out := make([]Document, 0, len(records))
	for _, record := range records {
		out = append(out, toDocument(record))
	}
	return out
}

func toDocument(record commonModels.DocumentRecord) Document {
	doc := Document{ID: record.ID, Name: record.Name, URL: record.URL}
	if record.CreatedAt != nil {
		doc.CreatedAt = record.CreatedAt.UTC().Format(time.RFC3339)
	}
	return doc
}
