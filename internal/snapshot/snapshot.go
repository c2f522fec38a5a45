// Package snapshot reads and writes offline copies of a task's schedule.
// Periods are stored in exactly the shape the HTTP API serves them.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/flatrota/internal/model"
)

type Snapshot struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Task      model.Task     `json:"task"`
	Periods   []model.Period `json:"periods"`
}

func New(task model.Task, periods []model.Period, now time.Time) Snapshot {
	if periods == nil {
		periods = []model.Period{}
	}
	return Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: now.UTC(),
		Task:      task,
		Periods:   periods,
	}
}

// Encode writes s as JSON. A non-empty passphrase encrypts the output.
func Encode(w io.Writer, s Snapshot, passphrase string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if passphrase != "" {
		if data, err = seal(data, passphrase); err != nil {
			return fmt.Errorf("encrypt snapshot: %w", err)
		}
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Decode reads a snapshot written by Encode with the same passphrase.
func Decode(r io.Reader, passphrase string) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	if passphrase != "" {
		if data, err = open(data, passphrase); err != nil {
			return Snapshot{}, err
		}
	}

	var s Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

func WriteFile(path string, s Snapshot, passphrase string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, s, passphrase); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	return nil
}

func ReadFile(path, passphrase string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	return Decode(f, passphrase)
}
