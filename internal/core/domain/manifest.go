package domain

// Manifest is the ordered list of records for one folder.
type Manifest struct {
	Folder  string
	Records []MetadataRecord
	// Roots holds the store key without extension of each record's document.
	Roots []string
}

func (m Manifest) Key() string {
	if m.Folder == "" {
		return ManifestName
	}
	return m.Folder + "/" + ManifestName
}

// ManifestSummary is what callers get back after a folder pass.
type ManifestSummary struct {
	Folder      string `json:"folder"`
	ManifestKey string `json:"manifest_key"`
	Documents   int    `json:"documents"`
	Published   bool   `json:"published"`
}
