package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ─── Signature ──────────────────────────────────────────────────────────────
// The provider signs each notification with HMAC-SHA256 over a manifest
// built from the notification's data id, the delivery's request id and a
// timestamp. The x-signature header carries "ts=<ts>,v1=<hex digest>".

// Signature is a parsed x-signature header.
type Signature struct {
	TS string
	V1 string
}

// ParseSignature splits an x-signature header into its components. Unknown
// keys are ignored; both ts and v1 are required.
func ParseSignature(header string) (Signature, error) {
	var sig Signature
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			sig.TS = strings.TrimSpace(value)
		case "v1":
			sig.V1 = strings.TrimSpace(value)
		}
	}
	if sig.TS == "" || sig.V1 == "" {
		return Signature{}, fmt.Errorf("signature header missing ts or v1")
	}
	return sig, nil
}

// Manifest is the string the provider signs.
func Manifest(dataID, requestID, ts string) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
}

// Sign returns the hex HMAC-SHA256 of the manifest.
func Sign(secret, dataID, requestID, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Manifest(dataID, requestID, ts)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Header renders a complete x-signature header value.
func Header(secret, dataID, requestID, ts string) string {
	return "ts=" + ts + ",v1=" + Sign(secret, dataID, requestID, ts)
}

// Verify checks header against the expected digest in constant time.
func Verify(secret, header, dataID, requestID string) error {
	if secret == "" {
		return fmt.Errorf("webhook secret not configured")
	}
	sig, err := ParseSignature(header)
	if err != nil {
		return err
	}
	got, err := hex.DecodeString(strings.ToLower(sig.V1))
	if err != nil {
		return fmt.Errorf("signature digest is not hex: %w", err)
	}
	want, _ := hex.DecodeString(Sign(secret, dataID, requestID, sig.TS))
	if !hmac.Equal(got, want) {
		return fmt.Errorf("signature digest mismatch")
	}
	return nil
}
