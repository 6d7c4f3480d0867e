package crypto

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	httpclient "workflow-intake/internal/common/http"
)

// KeyManagerEncryptor delegates encryption to the platform key manager.
type KeyManagerEncryptor struct {
	client        *httpclient.Client
	baseURL       string
	applicationID string
	now           func() time.Time
}

func NewKeyManagerEncryptor(client *httpclient.Client, baseURL, applicationID string) *KeyManagerEncryptor {
	return &KeyManagerEncryptor{
		client:        client,
		baseURL:       strings.TrimRight(baseURL, "/"),
		applicationID: applicationID,
		now:           time.Now,
	}
}

type keyManagerEnvelope struct {
	ID          string              `json:"id"`
	Version     string              `json:"version"`
	RequestTime string              `json:"requesttime"`
	Request     keyManagerEncryptIn `json:"request"`
}

type keyManagerEncryptIn struct {
	ApplicationID string `json:"applicationId"`
	ReferenceID   string `json:"referenceId"`
	TimeStamp     string `json:"timeStamp"`
	Data          string `json:"data"`
}

type keyManagerResponse struct {
	Response *struct {
		Data string `json:"data"`
	} `json:"response"`
	Errors []struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	} `json:"errors"`
}

func (e *KeyManagerEncryptor) Encrypt(ctx context.Context, plaintext, referenceID, timestamp string) ([]byte, error) {
	in := keyManagerEnvelope{
		ID:          "mosip.cryptomanager.encrypt",
		Version:     "1.0",
		RequestTime: FormatTimestamp(e.now()),
		Request: keyManagerEncryptIn{
			ApplicationID: e.applicationID,
			ReferenceID:   referenceID,
			TimeStamp:     timestamp,
			Data:          base64.RawURLEncoding.EncodeToString([]byte(plaintext)),
		},
	}

	var out keyManagerResponse
	if err := e.client.PostJSON(ctx, e.baseURL+"/encrypt", in, &out); err != nil {
		return nil, fmt.Errorf("key manager encrypt: %w", err)
	}

	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("key manager encrypt: %s: %s", out.Errors[0].ErrorCode, out.Errors[0].Message)
	}
	if out.Response == nil {
		return nil, fmt.Errorf("key manager encrypt: empty response")
	}

	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(out.Response.Data, "="))
	if err != nil {
		return nil, fmt.Errorf("key manager encrypt: decode data: %w", err)
	}
	return data, nil
}
