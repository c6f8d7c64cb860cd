package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/StudyHelper/internal/adapter/utils"
	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/rag/embedding"
	"github.com/akolanti/StudyHelper/internal/rag/vectorDB"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

// chunk counts above this go through the provider's slow batch api
const hugeDataSetChunks = 1000000

// Separators ordered from "best" to "worst" for semantic meaning
var separators = []string{"\n\n", "\n", ". ", " ", ""}

func splitTextIntoChunks(text string, limit int, overlap int) []string {
	return splitWith(text, limit, overlap, separators)
}

func splitWith(text string, limit int, overlap int, seps []string) []string {
	if len(text) <= limit {
		return []string{text}
	}

	splitChar := ""
	var rest []string
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			splitChar = s
			rest = seps[i+1:]
			break
		}
	}

	var chunks []string
	var currentChunk strings.Builder

	for _, part := range strings.Split(text, splitChar) {
		// a part that is too big on its own is split with the next separator
		if len(part) > limit && len(rest) > 0 {
			if currentChunk.Len() > 0 {
				chunks = append(chunks, currentChunk.String())
				currentChunk.Reset()
			}
			chunks = append(chunks, splitWith(part, limit, overlap, rest)...)
			continue
		}

		if currentChunk.Len()+len(part)+len(splitChar) > limit {
			previous := currentChunk.String()
			if previous != "" {
				chunks = append(chunks, previous)
			}
			currentChunk.Reset()

			// start the next chunk with the end of the previous one
			if len(previous) > overlap {
				overlapContent := tail(previous, overlap)
				if len(overlapContent)+len(splitChar)+len(part) <= limit {
					currentChunk.WriteString(overlapContent)
				}
			}
		}

		if currentChunk.Len() > 0 && splitChar != "" {
			currentChunk.WriteString(splitChar)
		}
		currentChunk.WriteString(part)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, currentChunk.String())
	}

	return chunks
}

// tail returns at most n trailing bytes of s without cutting a rune.
func tail(s string, n int) string {
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func GetDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".odt", ".txt", ".rtf":
		return commonModels.DOCX
	default:
		return commonModels.ERR
	}
}

func extractText(data []byte, fileName string, contentType commonModels.DocType, log *logger_i.Logger) ([]rawPage, error) {
	switch contentType {
	case commonModels.PDF:
		return extractPDF(data, log)
	case commonModels.DOCX:
		return extractdocxTxtRtf(data, filepath.Ext(fileName), log)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// textLength counts the non-whitespace text across every page.
func textLength(pages []rawPage) int {
	total := 0
	for _, page := range pages {
		total += len(strings.TrimSpace(page.Content))
	}
	return total
}

// PrepareChunks splits each page and drops fragments too short to be useful
// context.
func PrepareChunks(pages []rawPage, doc commonModels.Document, embeddingModel string) []commonModels.DocChunk {
	var allChunks []commonModels.DocChunk

	for _, page := range pages {
		stringChunks := splitTextIntoChunks(page.Content, config.MaxChunkSize, config.ChunkOverlap)

		order := 0
		for _, text := range stringChunks {
			if len(strings.TrimSpace(text)) < config.MinChunkLength {
				continue
			}
			allChunks = append(allChunks, commonModels.DocChunk{
				Doc:                doc,
				ChunkId:            utils.GetNewUUID(),
				Chunk:              text,
				PageNum:            page.Number,
				ChunkPageOrder:     order,
				EmbeddingDimension: embeddingModel,
			})
			order++
		}
	}

	return allChunks
}

// BatchIngest embeds and upserts chunks batch by batch. It returns how many
// chunks were stored; chunks whose embedding failed are skipped.
func BatchIngest(ctx context.Context, chunks []commonModels.DocChunk, vectorDB vectorDB.DataProcessor, embedder embedding.Embedder) (int, error) {
	log := logger_i.NewLogger("Batch Ingestion").WithTrace(ctx, config.TRACE_ID_KEY)

	batchSize := config.EmbeddingBatchSize
	isHugeDataSet := len(chunks) > hugeDataSetChunks
	if isHugeDataSet {
		log.Debug("Is a huge dataset")
	}

	stored := 0
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		currentBatch := chunks[i:end]

		texts := make([]string, len(currentBatch))
		for j, c := range currentBatch {
			texts[j] = c.Chunk
		}

		log.Debug("Starting embedding call", "batchStart", i, "batchLength", len(currentBatch))
		vectors, err := embedder.BatchEmbedding(ctx, texts, isHugeDataSet)
		if err != nil {
			return stored, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(currentBatch) {
			return stored, fmt.Errorf("embedding batch failed: got %d vectors for %d chunks", len(vectors), len(currentBatch))
		}

		keptChunks := make([]commonModels.DocChunk, 0, len(currentBatch))
		keptVectors := make([][]float32, 0, len(currentBatch))
		for j, v := range vectors {
			if len(v) == 0 {
				log.Warn("Skipping chunk without embedding", "chunkId", currentBatch[j].ChunkId)
				continue
			}
			keptChunks = append(keptChunks, currentBatch[j])
			keptVectors = append(keptVectors, v)
		}
		if len(keptChunks) == 0 {
			continue
		}

		err = vectorDB.UpsertBatch(ctx, config.EmbeddingDBName, keptChunks, keptVectors)
		if err != nil {
			return stored, fmt.Errorf("upserting to qdrant failed: %w", err)
		}
		stored += len(keptChunks)
	}

	return stored, nil
}
