// Bedrock signing transport for the summarizer.
//
// Provides an http.RoundTripper that signs requests with AWS SigV4 for the
// bedrock-runtime service. Used by Generate when provider is "bedrock".
package external

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

const (
	// DefaultBedrockRegion is used when no region is configured.
	DefaultBedrockRegion = "us-east-1"

	bedrockSigningName = "bedrock"
)

// BedrockSigningTransport is an http.RoundTripper that signs requests with SigV4.
type BedrockSigningTransport struct {
	credentials aws.CredentialsProvider
	region      string
	signer      *v4.Signer
	base        http.RoundTripper
	now         func() time.Time
}

// NewBedrockSigningTransport creates a transport that loads credentials from
// the standard AWS credential chain. A nil base uses http.DefaultTransport.
func NewBedrockSigningTransport(ctx context.Context, region string, base http.RoundTripper) (*BedrockSigningTransport, error) {
	if region == "" {
		region = DefaultBedrockRegion
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}
	return NewBedrockSigningTransportWithCredentials(cfg.Credentials, region, base), nil
}

// NewBedrockSigningTransportWithCredentials creates a transport with explicit
// credentials.
func NewBedrockSigningTransportWithCredentials(creds aws.CredentialsProvider, region string, base http.RoundTripper) *BedrockSigningTransport {
	if region == "" {
		region = DefaultBedrockRegion
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &BedrockSigningTransport{
		credentials: creds,
		region:      region,
		signer:      v4.NewSigner(),
		base:        base,
		now:         time.Now,
	}
}

// NewBedrockHTTPClient returns an http.Client that signs every request.
func NewBedrockHTTPClient(ctx context.Context, region string) (*http.Client, error) {
	transport, err := NewBedrockSigningTransport(ctx, region, nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: transport}, nil
}

// RoundTrip implements http.RoundTripper.
func (t *BedrockSigningTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body for signing: %w", err)
		}
		req.Body.Close()
	}

	creds, err := t.credentials.Retrieve(req.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}

	// RoundTrippers must not modify the caller's request.
	signed := req.Clone(req.Context())
	sum := sha256.Sum256(body)
	if err := t.signer.SignHTTP(req.Context(), creds, signed, hex.EncodeToString(sum[:]),
		bedrockSigningName, t.region, t.now()); err != nil {
		return nil, fmt.Errorf("failed to sign Bedrock request: %w", err)
	}
	signed.Body = io.NopCloser(bytes.NewReader(body))
	signed.ContentLength = int64(len(body))

	return t.base.RoundTrip(signed)
}
