// Package redeem issues and verifies the redemption token carried by a
// ticket purchase. A token is base64url(cbor payload) "." base64url(mac),
// where mac is a BLAKE3 keyed hash of the payload bytes.
package redeem

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	apperrors "eventstage/pkg/app_errors"

	"github.com/fxamacker/cbor/v2"
	"github.com/skip2/go-qrcode"
	"github.com/zeebo/blake3"
)

const KeySize = 32

// Payload is what a door scanner learns from a token.
type Payload struct {
	PurchaseID string `cbor:"1,keyasint" json:"purchase_id"`
	EventID    string `cbor:"2,keyasint" json:"event_id"`
	TierID     string `cbor:"3,keyasint" json:"tier_id"`
	Quantity   int    `cbor:"4,keyasint" json:"quantity"`
	IssuedAt   int64  `cbor:"5,keyasint" json:"issued_at"`
}

func (p Payload) Issued() time.Time {
	return time.Unix(p.IssuedAt, 0).UTC()
}

type Codec struct {
	key []byte
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("redeem: key must be %d bytes, got %d", KeySize, len(key))
	}
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("redeem: cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("redeem: cbor decoder: %w", err)
	}
	return &Codec{key: append([]byte(nil), key...), enc: enc, dec: dec}, nil
}

func (c *Codec) mac(payload []byte) ([]byte, error) {
	h, err := blake3.NewKeyed(c.key)
	if err != nil {
		return nil, err
	}
	if _, err := h.Write(payload); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// Issue encodes and signs p.
func (c *Codec) Issue(p Payload) (string, error) {
	payload, err := c.enc.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("redeem: encode payload: %w", err)
	}
	sum, err := c.mac(payload)
	if err != nil {
		return "", fmt.Errorf("redeem: mac: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(sum), nil
}

// Verify checks the MAC and decodes the payload. Any malformed or
// tampered token yields ErrInvalidToken.
func (c *Codec) Verify(token string) (*Payload, error) {
	encodedPayload, encodedMAC, ok := strings.Cut(token, ".")
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	got, err := base64.RawURLEncoding.DecodeString(encodedMAC)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	want, err := c.mac(payload)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return nil, apperrors.ErrInvalidToken
	}

	var p Payload
	if err := c.dec.Unmarshal(payload, &p); err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	return &p, nil
}

// QR renders the token as a PNG.
func QR(token string) ([]byte, error) {
	return qrcode.Encode(token, qrcode.Medium, 256)
}

// QRDataURL renders the token as an inline PNG data URL.
func QRDataURL(token string) (string, error) {
	png, err := QR(token)
	if err != nil {
		return "", fmt.Errorf("redeem: render qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
