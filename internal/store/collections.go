package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// KeyTranscripts holds a mapping from projectId to that project's
	// ordered transcript list.
	KeyTranscripts = "transcripts.json"
	// KeyAnalyses holds the ordered list of saved analyses across projects.
	KeyAnalyses = "savedAnalyses.json"
)

// Collections is the typed persistence gateway over a blob backend. A
// document that has never been written loads as its empty value; any other
// storage failure propagates to the caller untouched.
type Collections struct {
	blobs Blobs
}

func NewCollections(blobs Blobs) *Collections {
	return &Collections{blobs: blobs}
}

func (c *Collections) LoadTranscripts(ctx context.Context) (map[string][]Transcript, error) {
	body, err := c.blobs.Get(ctx, KeyTranscripts)
	if errors.Is(err, ErrNotExist) {
		return map[string][]Transcript{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load transcripts document: %w", err)
	}
	byProject := map[string][]Transcript{}
	if err := json.Unmarshal(body, &byProject); err != nil {
		return nil, fmt.Errorf("decode transcripts document: %w", err)
	}
	return byProject, nil
}

func (c *Collections) SaveTranscripts(ctx context.Context, byProject map[string][]Transcript) error {
	body, err := json.Marshal(byProject)
	if err != nil {
		return fmt.Errorf("encode transcripts document: %w", err)
	}
	if err := c.blobs.Put(ctx, KeyTranscripts, body); err != nil {
		return fmt.Errorf("save transcripts document: %w", err)
	}
	return nil
}

func (c *Collections) LoadAnalyses(ctx context.Context) ([]Analysis, error) {
	body, err := c.blobs.Get(ctx, KeyAnalyses)
	if errors.Is(err, ErrNotExist) {
		return []Analysis{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load analyses document: %w", err)
	}
	analyses := []Analysis{}
	if err := json.Unmarshal(body, &analyses); err != nil {
		return nil, fmt.Errorf("decode analyses document: %w", err)
	}
	return analyses, nil
}

func (c *Collections) SaveAnalyses(ctx context.Context, analyses []Analysis) error {
	body, err := json.Marshal(analyses)
	if err != nil {
		return fmt.Errorf("encode analyses document: %w", err)
	}
	if err := c.blobs.Put(ctx, KeyAnalyses, body); err != nil {
		return fmt.Errorf("save analyses document: %w", err)
	}
	return nil
}

func (c *Collections) Ping(ctx context.Context) error {
	return c.blobs.Ping(ctx)
}
