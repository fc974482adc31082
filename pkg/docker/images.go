package docker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/jsonmessage"
	"go.uber.org/zap"
)

// PullImage pulls image with the client's registry auth, rendering layer
// progress on the display until the stream ends.
func (c *Client) PullImage(ctx context.Context, image string) error {
	c.logger.Info("Attempting to pull image", zap.String("image", image))
	reader, err := c.engine.ImagePull(ctx, image, types.ImagePullOptions{RegistryAuth: c.auth})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	defer func() { _ = reader.Close() }()

	if err := c.streamProgress(reader); err != nil {
		return fmt.Errorf("pull failed for image %s: %w", image, err)
	}
	return nil
}

func (c *Client) streamProgress(r io.Reader) error {
	defer c.display.Done()

	progress := NewPullProgress()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec ProgressRecord
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			c.logger.Debug("skipping malformed pull progress", zap.ByteString("line", line))
			continue
		}
		if err := rec.Err(); err != nil {
			return err
		}
		if payload, ok := progress.Add(rec); ok {
			c.display.Update(payload)
		}
	}
	return scanner.Err()
}

// GetImage returns the first local image tagged ref, or nil when there is
// none.
func (c *Client) GetImage(ctx context.Context, ref string) (*types.ImageSummary, error) {
	images, err := c.engine.ImageList(ctx, types.ImageListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	for i := range images {
		for _, tag := range images[i].RepoTags {
			if tag == ref {
				return &images[i], nil
			}
		}
	}
	return nil, nil
}

// ProgressRecord is one line of a pull progress stream. Fields are kept
// loosely typed since registries do not agree on them.
type ProgressRecord struct {
	ID          any                    `json:"id,omitempty"`
	Status      any                    `json:"status,omitempty"`
	Progress    any                    `json:"progress,omitempty"`
	Error       string                 `json:"error,omitempty"`
	ErrorDetail *jsonmessage.JSONError `json:"errorDetail,omitempty"`
}

// Err returns the error reported in-band by the engine, if any.
func (r ProgressRecord) Err() error {
	if r.ErrorDetail != nil && r.ErrorDetail.Message != "" {
		return r.ErrorDetail
	}
	if r.Error != "" {
		return errors.New(r.Error)
	}
	return nil
}

// PullProgress tracks the latest record of every layer still in flight.
type PullProgress struct {
	order   []string
	records map[string]ProgressRecord
}

// NewPullProgress returns an empty PullProgress.
func NewPullProgress() *PullProgress {
	return &PullProgress{records: map[string]ProgressRecord{}}
}

// Add folds rec into the pending set and returns the rendered pending
// lines, or false when nothing is pending. Records without an id are
// ignored. Lines are rendered in the order their ids were first seen, even
// for numeric ids.
func (p *PullProgress) Add(rec ProgressRecord) (string, bool) {
	id := text(rec.ID)
	if id == "" {
		return "", false
	}

	if _, ok := p.records[id]; !ok {
		p.order = append(p.order, id)
	}
	p.records[id] = rec

	if text(rec.Progress) == "Pull complete" || text(rec.Status) == "Already exists" || id == "latest" {
		p.remove(id)
	}

	if len(p.order) == 0 {
		return "", false
	}
	var buf bytes.Buffer
	for i, key := range p.order {
		if i > 0 {
			buf.WriteByte('\n')
		}
		r := p.records[key]
		buf.WriteString(text(r.Status))
		if prog := text(r.Progress); prog != "" {
			buf.WriteString(": ")
			buf.WriteString(prog)
		}
	}
	return buf.String(), true
}

func (p *PullProgress) remove(id string) {
	delete(p.records, id)
	for i, key := range p.order {
		if key == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
