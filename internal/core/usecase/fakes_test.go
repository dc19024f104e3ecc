package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/core/ports"
)

type memStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr map[string]error
	saves   []string
}

func newMemStore(files map[string]string) *memStore {
	s := &memStore{files: make(map[string][]byte), saveErr: make(map[string]error)}
	for k, v := range files {
		s.files[k] = []byte(v)
	}
	return s
}

func (s *memStore) Save(_ context.Context, key string, data io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErr[key]; err != nil {
		return err
	}
	payload, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.files[key] = payload
	s.saves = append(s.saves, key)
	return nil
}

func (s *memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.files[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open", fmt.Errorf("key %s", key))
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

func (s *memStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[key]
	return ok, nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

func (s *memStore) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.files[key]
	return string(v), ok
}

type analysisFake struct {
	mu        sync.Mutex
	text      string
	textErr   error
	meta      map[string]any
	metaErr   error
	readyErr  error
	textCalls int
	metaCalls int
	names     []string
}

func (f *analysisFake) ExtractText(_ context.Context, name string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls++
	f.names = append(f.names, name)
	_, _ = io.Copy(io.Discard, body)
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.text, nil
}

func (f *analysisFake) ExtractMetadata(_ context.Context, name string, body io.Reader) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	_, _ = io.Copy(io.Discard, body)
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return f.meta, nil
}

func (f *analysisFake) WaitReady(context.Context) error { return f.readyErr }

type fontInspectorFake struct {
	hasFonts bool
	err      error
}

func (f *fontInspectorFake) HasFonts(context.Context, string) (bool, error) {
	return f.hasFonts, f.err
}

type converterFake struct {
	mu     sync.Mutex
	result ports.FallbackResult
	err    error
	calls  int
	paths  []string
}

func (f *converterFake) Convert(_ context.Context, localPath string) (ports.FallbackResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.paths = append(f.paths, localPath)
	return f.result, f.err
}

type supplementFake struct {
	records map[string]domain.MetadataRecord
	err     error
}

func (f *supplementFake) Parse(_ context.Context, root string) (domain.MetadataRecord, bool, error) {
	if f.err != nil {
		return domain.MetadataRecord{}, false, f.err
	}
	rec, ok := f.records[root]
	return rec, ok, nil
}

type jsonEncoderFake struct{}

func (jsonEncoderFake) Encode(records []domain.MetadataRecord) ([]byte, error) {
	return json.Marshal(records)
}

func (jsonEncoderFake) Decode(data []byte) ([]domain.MetadataRecord, error) {
	var out []domain.MetadataRecord
	err := json.Unmarshal(data, &out)
	return out, err
}

type processorFake struct {
	mu      sync.Mutex
	results map[string]domain.Result
	errs    map[string]error
	calls   []string
	active  int
	peak    int
	delay   time.Duration
}

func (f *processorFake) Process(_ context.Context, doc domain.Document, _ ports.ProcessOptions) (domain.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, doc.Key)
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	if err := f.errs[doc.Key]; err != nil {
		return domain.Result{Key: doc.Key}, err
	}
	if res, ok := f.results[doc.Key]; ok {
		return res, nil
	}
	return domain.Result{Key: doc.Key, State: domain.StateDone, Outcome: domain.OutcomeText}, nil
}

type ledgerFake struct {
	mu      sync.Mutex
	entries []ports.LedgerEntry
	err     error
}

func (f *ledgerFake) Record(_ context.Context, entry ports.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return f.err
}

type publisherFake struct {
	mu     sync.Mutex
	events []ports.ExtractionEvent
	err    error
}

func (f *publisherFake) PublishExtracted(_ context.Context, event ports.ExtractionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type observerFake struct {
	mu       sync.Mutex
	started  int
	outcomes map[domain.Outcome]int
	okPages  int
	failed   int
}

func (f *observerFake) StartDocument() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *observerFake) FinishDocument(outcome domain.Outcome, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outcomes == nil {
		f.outcomes = make(map[domain.Outcome]int)
	}
	f.outcomes[outcome]++
}

func (f *observerFake) ObserveOCRPages(ok, failed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.okPages += ok
	f.failed += failed
}

var errServiceDown = errors.New("dial tcp 127.0.0.1:9998: connect: connection refused")
