package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zjrosen/barangay/internal/domain"
)

// ErrCorrupt wraps decode failures of a stored draft.
var ErrCorrupt = errors.New("draft corrupt")

// Encode serializes form state. Absent optional fields stay absent.
func Encode(data domain.OfficialFormData) ([]byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding draft: %w", err)
	}
	return b, nil
}

// Decode parses a stored draft. Unknown fields are rejected so a payload
// from a different form is treated as corrupt.
func Decode(payload []byte) (domain.OfficialFormData, error) {
	var data domain.OfficialFormData
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&data); err != nil {
		return domain.OfficialFormData{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if dec.More() {
		return domain.OfficialFormData{}, fmt.Errorf("%w: trailing data", ErrCorrupt)
	}
	return data, nil
}

// LoadForm loads and decodes the draft under key. ok is false when no
// draft exists.
func LoadForm(ctx context.Context, s Store, key string) (data domain.OfficialFormData, ok bool, err error) {
	payload, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return domain.OfficialFormData{}, false, nil
	}
	if err != nil {
		return domain.OfficialFormData{}, false, err
	}
	data, err = Decode(payload)
	if err != nil {
		return domain.OfficialFormData{}, false, err
	}
	return data, true, nil
}

// SaveForm encodes data and stores it under key.
func SaveForm(ctx context.Context, s Store, key string, data domain.OfficialFormData) error {
	payload, err := Encode(data)
	if err != nil {
		return err
	}
	return s.Save(ctx, key, payload)
}
