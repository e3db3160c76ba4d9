// Package decoder turns the transport envelope delivered by the log
// subscription into a structured batch of raw records. Payloads arrive
// base64-encoded, usually gzip-compressed, and occasionally double-encoded
// after being re-forwarded through another delivery stream.
package decoder

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/rafaesapata/AWS-EVO-sub012/internal/models"
)

// gzip member header magic bytes.
var gzipMagic = []byte{0x1f, 0x8b}

// DecodeError is fatal for the whole invocation: without a decoded envelope
// there is no batch to partially process.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame: %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses an encoded payload into a LogBatchEnvelope.
//
// The payload is base64-decoded; if the decoded bytes start with the gzip
// magic number they are inflated first. If the result is not valid JSON the
// original input is retried verbatim as JSON, which handles payloads that
// were already decoded by an upstream forwarder.
func Decode(encodedPayload string) (*models.LogBatchEnvelope, error) {
	raw, b64Err := base64.StdEncoding.DecodeString(encodedPayload)
	if b64Err == nil {
		plain, err := inflateIfGzipped(raw)
		if err != nil {
			return nil, &DecodeError{Stage: "gunzip", Err: err}
		}
		if env, err := parseEnvelope(plain); err == nil {
			return env, nil
		}
	}

	// Re-forwarded payloads can arrive as plain JSON text.
	env, err := parseEnvelope([]byte(encodedPayload))
	if err != nil {
		if b64Err != nil {
			return nil, &DecodeError{Stage: "base64", Err: b64Err}
		}
		return nil, &DecodeError{Stage: "parse", Err: err}
	}
	return env, nil
}

func inflateIfGzipped(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	plain, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	return plain, nil
}

func parseEnvelope(data []byte) (*models.LogBatchEnvelope, error) {
	var env models.LogBatchEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.MessageType == "" {
		return nil, fmt.Errorf("missing messageType")
	}
	return &env, nil
}
