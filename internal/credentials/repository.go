package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/labkeeper/internal/filex"
	"github.com/dmitrijs2005/labkeeper/internal/logging"
)

type Repository interface {
	Load(ctx context.Context) (Table, error)
	Save(ctx context.Context, t Table) error
	// Stored reports whether the store holds at least one record, or
	// content that could not be parsed.
	Stored(ctx context.Context) (bool, error)
}

// FileRepository keeps the credential table in a JSON file.
type FileRepository struct {
	path   string
	logger logging.Logger
}

func NewFileRepository(path string, logger logging.Logger) *FileRepository {
	return &FileRepository{path: path, logger: logger}
}

// Load reads the table. A missing, empty or unparsable document is an empty
// table. Records that do not decode are skipped, so only that user fails to
// authenticate; only I/O failures other than absence are returned.
func (r *FileRepository) Load(ctx context.Context) (Table, error) {
	data, err := r.read()
	if err != nil {
		return nil, err
	}

	t := Table{}
	records, ok := r.records(ctx, data)
	if !ok {
		return t, nil
	}
	for username, raw := range records {
		var c Credential
		if err := json.Unmarshal(raw, &c); err != nil {
			r.logger.Warn(ctx, "credential record skipped", "path", r.path, "username", username, "error", err)
			continue
		}
		t[username] = c
	}
	return t, nil
}

// Save writes t. Records in the current file that do not decode and are not
// in t are carried over unchanged.
func (r *FileRepository) Save(ctx context.Context, t Table) error {
	out := make(map[string]json.RawMessage, len(t))

	data, err := r.read()
	if err != nil {
		return err
	}
	if records, ok := r.records(ctx, data); ok {
		for username, raw := range records {
			if _, replaced := t[username]; replaced {
				continue
			}
			if json.Unmarshal(raw, &Credential{}) != nil {
				out[username] = raw
			}
		}
	}

	for username, c := range t {
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode user %s: %w", username, err)
		}
		out[username] = raw
	}

	doc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := filex.WriteFileAtomic(r.path, doc, 0o600); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	return nil
}

func (r *FileRepository) Stored(_ context.Context) (bool, error) {
	data, err := r.read()
	if err != nil {
		return false, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return false, nil
	}
	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err == nil && len(records) == 0 {
		return false, nil
	}
	return true, nil
}

func (r *FileRepository) read() ([]byte, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read users file: %w", err)
	}
	return data, nil
}

// records splits the document into per-user raw records. ok is false when
// the document is blank or not a JSON object.
func (r *FileRepository) records(ctx context.Context, data []byte) (map[string]json.RawMessage, bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false
	}
	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil || records == nil {
		r.logger.Warn(ctx, "users file unreadable, treated as empty", "path", r.path, "error", err)
		return nil, false
	}
	return records, true
}
