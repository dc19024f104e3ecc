package domain

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// MetadataRecord is the per-document provenance record. An empty field is unset.
type MetadataRecord struct {
	FileType     string `json:"file_type" yaml:"file_type"`
	DateCreated  string `json:"date_created" yaml:"date_created"`
	DateReleased string `json:"date_released" yaml:"date_released"`
	Title        string `json:"title" yaml:"title"`
	Pages        string `json:"pages" yaml:"pages"`
	DocLocation  string `json:"doc_location,omitempty" yaml:"doc_location,omitempty"`
}

// Overlay copies every non-empty field of src over r.
func (r MetadataRecord) Overlay(src MetadataRecord) MetadataRecord {
	out := r
	if v := strings.TrimSpace(src.FileType); v != "" {
		out.FileType = v
	}
	if v := strings.TrimSpace(src.DateCreated); v != "" {
		out.DateCreated = v
	}
	if v := strings.TrimSpace(src.DateReleased); v != "" {
		out.DateReleased = v
	}
	if v := strings.TrimSpace(src.Title); v != "" {
		out.Title = v
	}
	if v := strings.TrimSpace(src.Pages); v != "" {
		out.Pages = v
	}
	if v := strings.TrimSpace(src.DocLocation); v != "" {
		out.DocLocation = v
	}
	return out
}

func (r MetadataRecord) IsZero() bool {
	return r == MetadataRecord{}
}

// Analysis-service field names, Tika schema.
const (
	analysisFormatKey       = "dc:format"
	analysisContentTypeKey  = "Content-Type"
	analysisLastSaveKey     = "Last-Save-Date"
	analysisModifiedKey     = "dcterms:modified"
	analysisTitleKey        = "title"
	analysisDCTitleKey      = "dc:title"
	analysisPagesKey        = "xmpTPg:NPages"
	analysisCreationKey     = "meta:creation-date"
	analysisDCTermsCreation = "dcterms:created"
)

// NormalizeAnalysis maps a raw analysis-service metadata document onto a MetadataRecord.
func NormalizeAnalysis(raw map[string]any) MetadataRecord {
	if len(raw) == 0 {
		return MetadataRecord{}
	}
	format := firstString(raw, analysisFormatKey)
	if format == "" {
		format = firstString(raw, analysisContentTypeKey)
	}
	released := firstString(raw, analysisLastSaveKey)
	if released == "" {
		released = firstString(raw, analysisModifiedKey)
	}
	created := firstString(raw, analysisCreationKey)
	if created == "" {
		created = firstString(raw, analysisDCTermsCreation)
	}
	title := firstString(raw, analysisTitleKey)
	if title == "" {
		title = firstString(raw, analysisDCTitleKey)
	}
	return MetadataRecord{
		FileType:     CleanFileType(format),
		DateCreated:  NormalizeDate(created),
		DateReleased: NormalizeDate(released),
		Title:        title,
		Pages:        firstString(raw, analysisPagesKey),
	}
}

// LooksLikeAnalysisOutput reports whether raw carries analysis-service keys rather than
// an already normalized record.
func LooksLikeAnalysisOutput(raw map[string]any) bool {
	for _, key := range []string{analysisFormatKey, analysisContentTypeKey, analysisPagesKey, analysisCreationKey, analysisLastSaveKey} {
		if _, ok := raw[key]; ok {
			return true
		}
	}
	return false
}

// NormalizeDate truncates an ISO-8601 timestamp to YYYY-MM-DD.
func NormalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	date, _, _ := strings.Cut(value, "T")
	return date
}

// CleanFileType turns a media type such as "application/pdf; version=1.6" into "pdf".
func CleanFileType(value string) string {
	value, _, _ = strings.Cut(value, ";")
	value = strings.TrimSpace(value)
	if _, sub, ok := strings.Cut(value, "/"); ok {
		value = sub
	}
	return strings.ToLower(strings.TrimSpace(value))
}

// DocLocation is the parent directory name joined with base and file type.
func DocLocation(dirKey, base, fileType string) string {
	name := base
	if fileType != "" {
		name = base + "." + fileType
	}
	parent := path.Base(dirKey)
	if dirKey == "" || parent == "." || parent == "/" {
		return name
	}
	return path.Join(parent, name)
}

func firstString(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case []any:
		for _, item := range typed {
			if s := scalarString(item); s != "" {
				return s
			}
		}
		return ""
	case []string:
		for _, item := range typed {
			if s := strings.TrimSpace(item); s != "" {
				return s
			}
		}
		return ""
	default:
		return scalarString(typed)
	}
}

func scalarString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}
