package lockstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/depfix-tools/depfix/internal/errors"
)

// AzureStore keeps lock documents in Azure Blob Storage.
type AzureStore struct {
	url       string
	account   string
	container string
	prefix    string
	client    *azblob.Client
}

// NewAzureStore creates a store for an Azure Blob Storage location.
// URL format: az://account/container/prefix
func NewAzureStore(url string) (*AzureStore, error) {
	account, container, prefix, err := parseAzureURL(url)
	if err != nil {
		return nil, errors.NewLockError(url, "store", err)
	}

	// Create Azure credential
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, errors.NewLockError(url, "store",
			fmt.Errorf("failed to create Azure credential: %w", err))
	}

	// Create blob client
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", account)
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.NewLockError(url, "store",
			fmt.Errorf("failed to create Azure blob client: %w", err))
	}

	return &AzureStore{
		url:       url,
		account:   account,
		container: container,
		prefix:    strings.TrimSuffix(prefix, "/"),
		client:    client,
	}, nil
}

// Protocol returns "az".
func (s *AzureStore) Protocol() string {
	return "az"
}

// Put uploads a document to the container.
func (s *AzureStore) Put(ctx context.Context, name string, data []byte) error {
	blobPath := s.getBlobPath(name)
	_, err := s.client.UploadBuffer(ctx, s.container, blobPath, data, nil)
	if err != nil {
		return errors.NewLockError(s.blobURL(blobPath), "store", err)
	}
	return nil
}

// Get downloads a document from the container.
func (s *AzureStore) Get(ctx context.Context, name string) ([]byte, error) {
	blobPath := s.getBlobPath(name)
	resp, err := s.client.DownloadStream(ctx, s.container, blobPath, nil)
	if err != nil {
		return nil, errors.NewLockError(s.blobURL(blobPath), "fetch", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewLockError(s.blobURL(blobPath), "fetch", err)
	}
	return data, nil
}

// getBlobPath returns the full blob path for a file name.
func (s *AzureStore) getBlobPath(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *AzureStore) blobURL(blobPath string) string {
	return fmt.Sprintf("az://%s/%s/%s", s.account, s.container, blobPath)
}

// parseAzureURL parses an Azure Blob Storage URL into account, container,
// and prefix.
func parseAzureURL(url string) (account, container, prefix string, err error) {
	if !strings.HasPrefix(url, "az://") {
		return "", "", "", fmt.Errorf("invalid Azure URL: must start with az://")
	}

	path := strings.TrimPrefix(url, "az://")
	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("invalid Azure URL: must be az://account/container[/prefix]")
	}

	account = parts[0]
	container = parts[1]
	if len(parts) > 2 {
		prefix = parts[2]
	}

	return account, container, prefix, nil
}
