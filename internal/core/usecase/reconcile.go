package usecase

import "github.com/kirillkom/docprep/internal/core/domain"

// NormalizeRecord applies format and date normalization to every field that needs it.
func NormalizeRecord(r domain.MetadataRecord) domain.MetadataRecord {
	r.FileType = domain.CleanFileType(r.FileType)
	r.DateCreated = domain.NormalizeDate(r.DateCreated)
	r.DateReleased = domain.NormalizeDate(r.DateReleased)
	return r
}

// Reconcile merges the analysis-service record with the source-specific supplement.
// Any non-empty supplemental field wins; everything else keeps the primary value.
func Reconcile(primary, supplemental domain.MetadataRecord) domain.MetadataRecord {
	return NormalizeRecord(primary).Overlay(NormalizeRecord(supplemental))
}

// ReconcileAnalysis is Reconcile over raw analysis-service output.
func ReconcileAnalysis(raw map[string]any, supplemental domain.MetadataRecord) domain.MetadataRecord {
	return Reconcile(domain.NormalizeAnalysis(raw), supplemental)
}
