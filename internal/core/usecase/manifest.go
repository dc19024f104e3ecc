package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/core/ports"
)

var releaseFolderPattern = regexp.MustCompile(`^[0-9]+$`)

// ManifestBuilder folds the metadata artifacts of a folder into manifest.yaml and
// optionally mirrors the folder to a remote store.
type ManifestBuilder struct {
	store        ports.DocumentStore
	supplements  ports.SupplementParser
	encoder      ports.ManifestEncoder
	remote       ports.DocumentStore
	remotePrefix string
	logger       *slog.Logger
}

type ManifestDeps struct {
	Store       ports.DocumentStore
	Supplements ports.SupplementParser
	Encoder     ports.ManifestEncoder
	// Remote is optional; without it folders are never published.
	Remote       ports.DocumentStore
	RemotePrefix string
}

func NewManifestBuilder(deps ManifestDeps, logger *slog.Logger) *ManifestBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestBuilder{
		store:        deps.Store,
		supplements:  deps.Supplements,
		encoder:      deps.Encoder,
		remote:       deps.Remote,
		remotePrefix: strings.Trim(deps.RemotePrefix, "/"),
		logger:       logger,
	}
}

// Collect reads every metadata artifact under folder, at any depth, in lexical key
// order and reconciles each with its supplement.
func (b *ManifestBuilder) Collect(ctx context.Context, folder string) (domain.Manifest, error) {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	manifest := domain.Manifest{Folder: folder, Records: []domain.MetadataRecord{}}

	keySet, err := listKeySet(ctx, b.store, folder)
	if err != nil {
		return manifest, err
	}
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !strings.HasSuffix(key, domain.MetadataSuffix) {
			continue
		}
		root := strings.TrimSuffix(key, domain.MetadataSuffix)

		record := b.readMarker(ctx, key)
		if b.supplements != nil {
			sup, ok, err := b.supplements.Parse(ctx, root)
			switch {
			case err != nil:
				b.logger.Warn("supplement unreadable; using analysis metadata only", "document", root, "error", err)
			case ok:
				record = Reconcile(record, sup)
			}
		}

		docKey := siblingDocument(root, keySet)
		if record.FileType == "" && docKey != "" {
			record.FileType = domain.NewDocument(docKey).Ext()
		}
		record.DocLocation = domain.DocLocation(path.Dir(root), path.Base(root), record.FileType)

		manifest.Records = append(manifest.Records, record)
		manifest.Roots = append(manifest.Roots, root)
	}
	return manifest, nil
}

// BuildFolder writes manifest.yaml for folder, replacing any previous one.
func (b *ManifestBuilder) BuildFolder(ctx context.Context, folder string) (domain.ManifestSummary, error) {
	manifest, err := b.Collect(ctx, folder)
	if err != nil {
		return domain.ManifestSummary{Folder: manifest.Folder}, err
	}
	summary := domain.ManifestSummary{
		Folder:      manifest.Folder,
		ManifestKey: manifest.Key(),
		Documents:   len(manifest.Records),
	}

	payload, err := b.encoder.Encode(manifest.Records)
	if err != nil {
		return summary, fmt.Errorf("encode manifest: %w", err)
	}
	if err := b.store.Save(ctx, manifest.Key(), bytes.NewReader(payload)); err != nil {
		return summary, fmt.Errorf("save manifest: %w", err)
	}
	b.logger.Info("manifest written", "folder", manifest.Folder, "documents", summary.Documents)

	if b.remote == nil {
		return summary, nil
	}
	keySet, err := listKeySet(ctx, b.store, manifest.Folder)
	if err != nil {
		return summary, err
	}
	if err := b.publish(ctx, manifest, keySet); err != nil {
		return summary, err
	}
	summary.Published = true
	return summary, nil
}

// PrepareAgency builds manifests for every digit-named release folder directly under agencyDir.
// Folder failures are collected and do not stop the remaining folders.
func (b *ManifestBuilder) PrepareAgency(ctx context.Context, agencyDir string) ([]domain.ManifestSummary, error) {
	agencyDir = strings.Trim(path.Clean("/"+agencyDir), "/")
	keys, err := b.store.List(ctx, folderPrefix(agencyDir))
	if err != nil {
		return nil, fmt.Errorf("list agency %q: %w", agencyDir, err)
	}

	seen := make(map[string]struct{})
	folders := make([]string, 0)
	for _, key := range keys {
		rel := strings.TrimPrefix(key, folderPrefix(agencyDir))
		child, _, nested := strings.Cut(rel, "/")
		if !nested || !releaseFolderPattern.MatchString(child) {
			continue
		}
		if _, ok := seen[child]; ok {
			continue
		}
		seen[child] = struct{}{}
		folders = append(folders, path.Join(agencyDir, child))
	}
	sort.Strings(folders)

	summaries := make([]domain.ManifestSummary, 0, len(folders))
	var errs []error
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		summary, err := b.BuildFolder(ctx, folder)
		if err != nil {
			b.logger.Error("prepare folder failed", "folder", folder, "error", err)
			errs = append(errs, fmt.Errorf("folder %s: %w", folder, err))
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, errors.Join(errs...)
}

// publish uploads the manifest, then each document and its text artifact when present.
func (b *ManifestBuilder) publish(ctx context.Context, manifest domain.Manifest, keySet map[string]struct{}) error {
	target := b.remoteFolder(manifest.Folder)
	if err := b.copyToRemote(ctx, manifest.Key(), path.Join(target, domain.ManifestName)); err != nil {
		return err
	}
	for _, root := range manifest.Roots {
		docKey := siblingDocument(root, keySet)
		if docKey == "" {
			b.logger.Warn("document missing for metadata; not published", "document", root)
			continue
		}
		if err := b.copyToRemote(ctx, docKey, path.Join(target, relativeTo(manifest.Folder, docKey))); err != nil {
			return err
		}
		textKey := root + domain.TextSuffix
		if _, ok := keySet[textKey]; !ok {
			continue
		}
		if err := b.copyToRemote(ctx, textKey, path.Join(target, relativeTo(manifest.Folder, textKey))); err != nil {
			return err
		}
	}
	b.logger.Info("folder published", "folder", manifest.Folder, "target", target)
	return nil
}

// remoteFolder mirrors "<agency>/<release>" under the remote prefix.
func (b *ManifestBuilder) remoteFolder(folder string) string {
	release := path.Base(folder)
	agency := path.Base(path.Dir(folder))
	parts := []string{}
	if b.remotePrefix != "" {
		parts = append(parts, b.remotePrefix)
	}
	if agency != "." && agency != "/" {
		parts = append(parts, agency)
	}
	parts = append(parts, release)
	return path.Join(parts...)
}

func (b *ManifestBuilder) copyToRemote(ctx context.Context, key, remoteKey string) error {
	src, err := b.store.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open %s for publish: %w", key, err)
	}
	defer src.Close()
	if err := b.remote.Save(ctx, remoteKey, src); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// readMarker decodes a metadata artifact. Unreadable markers yield an empty record.
func (b *ManifestBuilder) readMarker(ctx context.Context, key string) domain.MetadataRecord {
	rc, err := b.store.Open(ctx, key)
	if err != nil {
		b.logger.Warn("metadata artifact unreadable", "key", key, "error", err)
		return domain.MetadataRecord{}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		b.logger.Warn("metadata artifact unreadable", "key", key, "error", err)
		return domain.MetadataRecord{}
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		b.logger.Warn("metadata artifact malformed", "key", key, "error", err)
		return domain.MetadataRecord{}
	}
	if domain.LooksLikeAnalysisOutput(raw) {
		return NormalizeRecord(domain.NormalizeAnalysis(raw))
	}
	var record domain.MetadataRecord
	if err := json.Unmarshal(data, &record); err != nil {
		b.logger.Warn("metadata artifact malformed", "key", key, "error", err)
		return domain.MetadataRecord{}
	}
	record.DocLocation = ""
	return NormalizeRecord(record)
}

// siblingDocument finds the source document for root, ignoring pipeline artifacts.
func siblingDocument(root string, keySet map[string]struct{}) string {
	candidates := make([]string, 0, 1)
	for key := range keySet {
		if domain.IsArtifactKey(key) || strings.TrimSuffix(key, path.Ext(key)) != root {
			continue
		}
		candidates = append(candidates, key)
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	return candidates[0]
}

func listKeySet(ctx context.Context, store ports.DocumentStore, folder string) (map[string]struct{}, error) {
	keys, err := store.List(ctx, folderPrefix(folder))
	if err != nil {
		return nil, fmt.Errorf("list folder %q: %w", folder, err)
	}
	out := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		out[key] = struct{}{}
	}
	return out, nil
}

func folderPrefix(folder string) string {
	if folder == "" {
		return ""
	}
	return folder + "/"
}

// relativeTo strips folder from key so nested documents keep their sub-path.
func relativeTo(folder, key string) string {
	return strings.TrimPrefix(key, folderPrefix(folder))
}
