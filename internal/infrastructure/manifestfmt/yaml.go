package manifestfmt

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/docprep/internal/core/domain"
)

// YAML writes manifests as a top-level sequence of records.
type YAML struct{}

func NewYAML() YAML {
	return YAML{}
}

func (YAML) Encode(records []domain.MetadataRecord) ([]byte, error) {
	if records == nil {
		records = []domain.MetadataRecord{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

func (YAML) Decode(data []byte) ([]domain.MetadataRecord, error) {
	var records []domain.MetadataRecord
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode manifest", err)
	}
	return records, nil
}
