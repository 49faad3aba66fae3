package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Connector reads source documents from one blob container.
type Connector struct {
	name   string
	client *container.Client
	logger *zap.Logger
}

// NewConnector builds a container client for account/name. No request is made.
func NewConnector(account, name string, cred azcore.TokenCredential, logger *zap.Logger) (*Connector, error) {
	svc, err := azblob.NewClient(fmt.Sprintf("https://%s.blob.core.windows.net", account), cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob service client: %w", err)
	}

	return NewConnectorFromClient(name, svc.ServiceClient().NewContainerClient(name), logger), nil
}

func NewConnectorFromClient(name string, client *container.Client, logger *zap.Logger) *Connector {
	return &Connector{
		name:   name,
		client: client,
		logger: logger,
	}
}

func (c *Connector) Name() string {
	return c.name
}

// Download reads the whole blob into memory. A missing blob or container
// yields entity.ErrNotFound.
func (c *Connector) Download(ctx context.Context, name string) (*entity.Blob, error) {
	ctxzap.Info(ctx, "downloading blob", zap.String("container", c.name), zap.String("blob", name))

	resp, err := c.client.NewBlobClient(name).DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
			return nil, fmt.Errorf("blob %s/%s: %w", c.name, name, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("download blob %s/%s: %w", c.name, name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob %s/%s: %w", c.name, name, err)
	}

	blob := &entity.Blob{
		Name:    name,
		Content: data,
	}
	if resp.ContentType != nil {
		blob.ContentType = *resp.ContentType
	}

	return blob, nil
}
