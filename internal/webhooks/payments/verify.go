package paymentwebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
)

// SignatureHeader is the header carrying the provider's payload signature.
const SignatureHeader = "Stripe-Signature"

// VerifySignature checks a `t=<unix>,v1=<hex>` signature header against the
// raw payload. The signed message is "<t>.<payload>" under HMAC-SHA256 with
// the shared signing secret. Timestamps outside the tolerance window are
// rejected to blunt replay of captured deliveries. Every failure is a
// validation error: the provider sent something we will never accept, so
// redelivery of the same payload cannot help.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "webhook signing secret not configured")
	}
	if strings.TrimSpace(header) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature header missing")
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		drift := now.Sub(time.Unix(timestamp, 0))
		if drift < 0 {
			drift = -drift
		}
		if drift > tolerance {
			return pkgerrors.New(pkgerrors.CodeValidation, "signature timestamp outside tolerance window")
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range signatures {
		decoded, decodeErr := hex.DecodeString(candidate)
		if decodeErr != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "signature mismatch")
}

// SignPayload produces a header VerifySignature accepts, used when replaying
// recorded payloads against a local server.
func SignPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var (
		timestamp    int64
		timestampSet bool
		signatures   []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return 0, nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed signature header")
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed signature timestamp")
			}
			timestamp = parsed
			timestampSet = true
		case "v1":
			signatures = append(signatures, value)
		default:
			// unknown schemes are ignored so the provider can rotate
		}
	}
	if !timestampSet {
		return 0, nil, pkgerrors.New(pkgerrors.CodeValidation, "signature timestamp missing")
	}
	if len(signatures) == 0 {
		return 0, nil, pkgerrors.New(pkgerrors.CodeValidation, "no v1 signature present")
	}
	return timestamp, signatures, nil
}
