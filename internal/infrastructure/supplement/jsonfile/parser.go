package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/core/ports"
)

// Parser reads "<root>.json" records published alongside source documents.
type Parser struct {
	store ports.DocumentStore
}

func New(store ports.DocumentStore) *Parser {
	return &Parser{store: store}
}

type supplementFile struct {
	Title        json.RawMessage `json:"title"`
	ReleasedOn   json.RawMessage `json:"released_on"`
	DateReleased json.RawMessage `json:"date_released"`
	DateCreated  json.RawMessage `json:"date_created"`
	FileType     json.RawMessage `json:"file_type"`
	Pages        json.RawMessage `json:"pages"`
}

func (p *Parser) Parse(ctx context.Context, docRoot string) (domain.MetadataRecord, bool, error) {
	key := docRoot + domain.SupplementSuffix
	exists, err := p.store.Exists(ctx, key)
	if err != nil {
		return domain.MetadataRecord{}, false, fmt.Errorf("check supplement %s: %w", key, err)
	}
	if !exists {
		return domain.MetadataRecord{}, false, nil
	}

	rc, err := p.store.Open(ctx, key)
	if err != nil {
		return domain.MetadataRecord{}, false, fmt.Errorf("open supplement %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.MetadataRecord{}, false, fmt.Errorf("read supplement %s: %w", key, err)
	}

	var raw supplementFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.MetadataRecord{}, false, domain.WrapError(domain.ErrInvalidInput, "decode supplement "+key, err)
	}
	released := scalar(raw.ReleasedOn)
	if released == "" {
		released = scalar(raw.DateReleased)
	}
	return domain.MetadataRecord{
		Title:        scalar(raw.Title),
		DateReleased: released,
		DateCreated:  scalar(raw.DateCreated),
		FileType:     scalar(raw.FileType),
		Pages:        scalar(raw.Pages),
	}, true, nil
}

// scalar renders a JSON string, number or bool as text; anything else is empty.
func scalar(msg json.RawMessage) string {
	if len(msg) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return typed
	case float64, bool:
		return fmt.Sprint(typed)
	case []any:
		if len(typed) > 0 {
			if s, ok := typed[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
