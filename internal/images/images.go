// Package images maintains the community-submitted image pool shown on lobby
// embeds, persisted as a json file.
package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	ErrDuplicateImage = errors.New("image already in pool")
	ErrInvalidImage   = errors.New("invalid image url")
	ErrUnknownImage   = errors.New("image not in pool")
)

type Entry struct {
	URL         string    `json:"url"`
	SubmittedBy string    `json:"submitted_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store holds the pool in memory and writes the file through on every
// mutation. Validation fetches the url's headers, so Add can block for up to
// the client timeout.
type Store struct {
	mu      sync.Mutex
	path    string
	entries []Entry
	client  *http.Client
}

func NewStore(path string) (*Store, error) {
	store := &Store{
		path:   path,
		client: &http.Client{Timeout: time.Second * 5},
	}

	body, errRead := os.ReadFile(path)
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return store, nil
		}

		return nil, fmt.Errorf("failed to read image pool: %w", errRead)
	}

	if errDecode := json.Unmarshal(body, &store.entries); errDecode != nil {
		return nil, fmt.Errorf("failed to decode image pool: %w", errDecode)
	}

	return store, nil
}

func (s *Store) save() error {
	body, errEncode := json.MarshalIndent(s.entries, "", "  ")
	if errEncode != nil {
		return fmt.Errorf("failed to encode image pool: %w", errEncode)
	}

	if errMkdir := os.MkdirAll(filepath.Dir(s.path), 0o755); errMkdir != nil {
		return fmt.Errorf("failed to create image pool dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(s.path, body, 0o644); errWrite != nil {
		return fmt.Errorf("failed to write image pool: %w", errWrite)
	}

	return nil
}

// Add validates and appends a new image url.
func (s *Store) Add(ctx context.Context, url string, submittedBy string) error {
	url = strings.TrimSpace(url)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		if entry.URL == url {
			return ErrDuplicateImage
		}
	}

	if !s.validate(ctx, url) {
		return ErrInvalidImage
	}

	s.entries = append(s.entries, Entry{URL: url, SubmittedBy: submittedBy, Timestamp: time.Now()})

	return s.save()
}

// validate checks that the url answers with an image content type.
func (s *Store) validate(ctx context.Context, url string) bool {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if errReq != nil {
		return false
	}

	resp, errDo := s.client.Do(req)
	if errDo != nil {
		return false
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	contentType := resp.Header.Get("Content-Type")

	return resp.StatusCode == http.StatusOK && strings.HasPrefix(strings.ToLower(contentType), "image/")
}

// Random returns a random pool url, or empty when the pool is empty.
func (s *Store) Random() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return ""
	}

	return s.entries[rand.Intn(len(s.entries))].URL //nolint:gosec
}

// Remove drops a url from the pool.
func (s *Store) Remove(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, entry := range s.entries {
		if entry.URL != url {
			kept = append(kept, entry)
		}
	}

	if len(kept) == len(s.entries) {
		return ErrUnknownImage
	}

	s.entries = kept

	return s.save()
}
