package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the request header carrying the provider signature.
const SignatureHeader = "Stripe-Signature"

// VerifySignature authenticates a webhook delivery. The header has the form
// "t=<unix>,v1=<hex>[,v1=<hex>...]"; the expected signature is an HMAC-SHA256
// of "<t>.<rawBody>" keyed with the shared webhook secret.
//
// Verification runs over the exact raw bytes received — never a re-serialized
// form, since re-serialization can alter byte layout and break the check. The
// embedded timestamp must fall within the tolerance window relative to now,
// which bounds replay exposure.
//
// Pure validation: no side effects, and any error here must stop all
// downstream processing of the payload.
func VerifySignature(rawBody []byte, header, secret string, tolerance time.Duration) error {
	return verifySignatureAt(rawBody, header, secret, tolerance, time.Now())
}

func verifySignatureAt(rawBody []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" || secret == "" {
		return ErrMalformedSignatureHeader
	}

	var timestamp int64 = -1
	var signatures [][]byte

	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return ErrMalformedSignatureHeader
		}
		switch parts[0] {
		case "t":
			t, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return ErrMalformedSignatureHeader
			}
			timestamp = t
		case "v1":
			sig, err := hex.DecodeString(parts[1])
			if err != nil {
				return ErrMalformedSignatureHeader
			}
			signatures = append(signatures, sig)
		default:
			// Unknown schemes (v0 etc.) are ignored, as the provider documents.
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return ErrMalformedSignatureHeader
	}

	expected := computeSignature(timestamp, rawBody, secret)
	match := false
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			match = true
			break
		}
	}
	if !match {
		return ErrSignatureMismatch
	}

	// Staleness is checked only after the signature matches, so attackers
	// cannot probe the tolerance window with forged headers.
	eventTime := time.Unix(timestamp, 0)
	if now.Sub(eventTime) > tolerance || eventTime.Sub(now) > tolerance {
		return ErrStaleEvent
	}

	return nil
}

func computeSignature(timestamp int64, rawBody []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(rawBody)
	return mac.Sum(nil)
}

// SignPayload produces a valid signature header for a payload. Used by tests
// and the webhook replay tooling.
func SignPayload(rawBody []byte, secret string, at time.Time) string {
	ts := at.Unix()
	sig := computeSignature(ts, rawBody, secret)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(sig))
}
