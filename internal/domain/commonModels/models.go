package commonModels

import "time"

// Document is the server-side record of an uploaded file.
type Document struct {
	Id                  string    `json:"source_doc_id"`
	UserId              string    `json:"user_id"`
	Name                string    `json:"doc_name"`
	StorageKey          string    `json:"storage_key"`
	CreatedAt           time.Time `json:"created_at"`
	LastIngestTimestamp time.Time `json:"ingested_at,omitempty"`
	ContentType         DocType   `json:"contentType"`
}

// DocumentRecord is one catalog entry as the client sees it. Records are
// replaced wholesale on every catalog refresh and never patched.
type DocumentRecord struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	URL       string     `json:"url"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type DocChunk struct {
	Doc                Document
	ChunkId            string `json:"chunk_id"`
	Chunk              string `json:"content"`
	PageNum            int    `json:"page_num"`
	ChunkPageOrder     int    `json:"chunk_order"`
	EmbeddingDimension string `json:"embeddingModel"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"
