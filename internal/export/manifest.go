package export

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hanko-field/ordersim/internal/services"
)

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(w io.Writer, manifest services.RunManifest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	return nil
}

// HMACSigner signs manifests with HMAC-SHA256 and a shared key.
type HMACSigner struct {
	key []byte
}

// NewHMACSigner returns a signer for key.
func NewHMACSigner(key []byte) (*HMACSigner, error) {
	if len(key) == 0 {
		return nil, errors.New("manifest signer: key is required")
	}
	return &HMACSigner{key: append([]byte(nil), key...)}, nil
}

// SignManifest returns the hex-encoded HMAC of payload.
func (s *HMACSigner) SignManifest(_ context.Context, payload []byte) (string, error) {
	if s == nil || len(s.key) == 0 {
		return "", errors.New("manifest signer: not initialised")
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyManifest reports whether the manifest signature matches its canonical encoding.
func (s *HMACSigner) VerifyManifest(ctx context.Context, manifest services.RunManifest) (bool, error) {
	payload, err := manifest.CanonicalJSON()
	if err != nil {
		return false, err
	}
	expected, err := s.SignManifest(ctx, payload)
	if err != nil {
		return false, err
	}
	got, err := hex.DecodeString(manifest.Signature)
	if err != nil {
		return false, nil
	}
	want, _ := hex.DecodeString(expected)
	return hmac.Equal(got, want), nil
}
