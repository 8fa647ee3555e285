package auth

import (
	"context"
	"fmt"
	"os"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// KeySource locates the GitHub App private key. Exactly one field is used,
// checked in order: inline PEM, file path, Secret Manager resource name.
type KeySource struct {
	// PEM is the key material itself, e.g. from an environment variable.
	PEM string
	// Path is a PEM file on disk.
	Path string
	// SecretName is a full Secret Manager version resource,
	// e.g. "projects/p/secrets/github-app-key/versions/latest".
	SecretName string
}

// LoadPrivateKey resolves the key source to PEM bytes.
func LoadPrivateKey(ctx context.Context, source KeySource, opts ...option.ClientOption) ([]byte, error) {
	switch {
	case source.PEM != "":
		return []byte(source.PEM), nil
	case source.Path != "":
		data, err := os.ReadFile(source.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file: %w", err)
		}
		return data, nil
	case source.SecretName != "":
		return fetchSecret(ctx, source.SecretName, opts...)
	default:
		return nil, fmt.Errorf("no private key source configured")
	}
}

// fetchSecret reads a secret version from GCP Secret Manager.
func fetchSecret(ctx context.Context, name string, opts ...option.ClientOption) ([]byte, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	defer func() { _ = client.Close() }()

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access secret %s: %w", name, err)
	}
	return result.Payload.GetData(), nil
}
