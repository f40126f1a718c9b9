package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	apperrors "go-rembg-clean/internal/errors"
)

// AzureStore uploads outputs to an Azure Blob Storage container, mirroring
// the relative key layout the local store uses on disk
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore creates a store for the given storage account and container
func NewAzureStore(accountName, accountKey, container string) (*AzureStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AzureStore{client: client, container: container}, nil
}

// Put uploads the encoded image as a block blob
func (s *AzureStore) Put(ctx context.Context, key string, data []byte) error {
	if _, err := s.client.UploadBuffer(ctx, s.container, key, data, nil); err != nil {
		return apperrors.NewWriteError(fmt.Sprintf("failed to upload blob %s", key), err)
	}
	return nil
}

// Exists reports whether a blob is already present at key
func (s *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	blob := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(key)
	if _, err := blob.GetProperties(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
