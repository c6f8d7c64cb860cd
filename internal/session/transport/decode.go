package transport

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
)

type wireDocument struct {
	ID        json.RawMessage `json:"id"`
	Name      string          `json:"name"`
	URL       string          `json:"url"`
	CreatedAt *string         `json:"created_at"`
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// DecodeDocuments decodes a catalog response. It returns the decoded records
// and how many entries were skipped.
func DecodeDocuments(raw []byte) ([]commonModels.DocumentRecord, int) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []commonModels.DocumentRecord{}, 0
	}

	docs := make([]commonModels.DocumentRecord, 0, len(items))
	skipped := 0
	for _, item := range items {
		var w wireDocument
		if !bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
			skipped++
			continue
		}
		if err := json.Unmarshal(item, &w); err != nil {
			skipped++
			continue
		}
		docs = append(docs, commonModels.DocumentRecord{
			ID:        decodeID(w.ID),
			Name:      w.Name,
			URL:       w.URL,
			CreatedAt: parseCreatedAt(w.CreatedAt),
		})
	}
	return docs, skipped
}

func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

func parseCreatedAt(value *string) *time.Time {
	if value == nil {
		return nil
	}
	s := strings.TrimSpace(*value)
	if s == "" {
		return nil
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
