package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/holo2k/AdvertControl-sub000/internal/api"
	"github.com/holo2k/AdvertControl-sub000/internal/models"
)

// recordingRenderer captures display calls for assertions.
type recordingRenderer struct {
	mu          sync.Mutex
	shownCodes  []string
	shownItems  []string
	status      string
	hiddenCount int
}

func (r *recordingRenderer) ShowPairing(code, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shownCodes = append(r.shownCodes, code)
}

func (r *recordingRenderer) HidePairing() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hiddenCount++
}

func (r *recordingRenderer) DisplayItem(_ context.Context, item models.ConfigItem, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shownItems = append(r.shownItems, item.ID)
	return nil
}

func (r *recordingRenderer) SetStatus(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = text
}

func (r *recordingRenderer) StatusText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *recordingRenderer) codes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.shownCodes...)
}

func (r *recordingRenderer) items() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.shownItems...)
}

// memoryScreenInfo is an in-memory identity store.
type memoryScreenInfo struct {
	mu sync.Mutex
	id string
}

func (m *memoryScreenInfo) LoadScreenInfo() error { return nil }

func (m *memoryScreenInfo) GetScreenID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *memoryScreenInfo) SaveScreenID(screenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = screenID
	return nil
}

func (m *memoryScreenInfo) ClearScreenID() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = ""
	return nil
}

// scriptedPairingAPI plays back a scripted sequence of register outcomes
// and status answers.
type scriptedPairingAPI struct {
	mu            sync.Mutex
	registerCalls int
	registerOK    []bool
	registerErr   []error
	statusAfter   int
	statusCalls   int
	screenID      string
	codes         []string
}

func (s *scriptedPairingAPI) RegisterPairing(_ context.Context, _, code string, _ int, _ json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.registerCalls
	s.registerCalls++
	s.codes = append(s.codes, code)

	if i < len(s.registerErr) && s.registerErr[i] != nil {
		return false, s.registerErr[i]
	}
	if i < len(s.registerOK) {
		return s.registerOK[i], nil
	}
	return true, nil
}

func (s *scriptedPairingAPI) PairingStatus(_ context.Context, _ string) (models.PairingStatusResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statusCalls++
	if s.statusCalls > s.statusAfter {
		return models.PairingStatusResponse{Assigned: true, ScreenID: s.screenID}, nil
	}
	return models.PairingStatusResponse{}, nil
}

// scriptedConfigAPI answers config fetches and existence checks from
// mutable fields.
type scriptedConfigAPI struct {
	mu         sync.Mutex
	snap       *models.ConfigSnapshot
	result     api.ResolveResult
	resolveErr error
	exists     bool
	existsErr  error
}

func (s *scriptedConfigAPI) ResolveConfig(_ context.Context, _ string, _ int64) (*models.ConfigSnapshot, api.ResolveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolveErr != nil {
		return nil, api.ResolveNoContent, s.resolveErr
	}
	return s.snap, s.result, nil
}

func (s *scriptedConfigAPI) ScreenExists(_ context.Context, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists, s.existsErr
}

// fakeMaterializer resolves references to deterministic local paths.
type fakeMaterializer struct {
	mu     sync.Mutex
	calls  []string
	errFor map[string]error
}

func (f *fakeMaterializer) Materialize(_ context.Context, reference, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, reference)
	if err, ok := f.errFor[reference]; ok {
		return "", err
	}
	return "/tmp/cache/" + reference, nil
}

func (f *fakeMaterializer) materialized() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

var errBoom = fmt.Errorf("boom")
