package documents

import (
	"encoding/base64"
	"strings"

	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
)

// Encode converts a rendered document into the base64 text stored alongside
// the warranty. Empty input is rejected.
func Encode(content []byte) (string, error) {
	if len(content) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeEncoding, "cannot encode an empty document")
	}
	return base64.StdEncoding.EncodeToString(content), nil
}

// Decode accepts either bare base64 or a data URI such as
// "data:application/pdf;base64,JVBERi0...".
func Decode(encoded string) ([]byte, error) {
	payload := strings.TrimSpace(encoded)
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 || !strings.HasSuffix(payload[:idx], ";base64") {
			return nil, pkgerrors.New(pkgerrors.CodeEncoding, "data uri is not base64 encoded")
		}
		payload = payload[idx+1:]
	}
	payload = strings.Join(strings.Fields(payload), "")
	if payload == "" {
		return nil, pkgerrors.New(pkgerrors.CodeEncoding, "encoded payload is empty")
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeEncoding, err, "payload is not valid base64")
		}
	}
	return decoded, nil
}
