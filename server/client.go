package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// jsonCall selects the Catalog codec; the health service keeps protobuf.
var jsonCall = grpc.CallContentSubtype(codecName)

// Client calls the imgscout.Catalog service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to target. Extra options are appended after the defaults.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Conn exposes the connection for other services such as health.
func (c *Client) Conn() *grpc.ClientConn {
	return c.conn
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) SearchImages(ctx context.Context, query string) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.conn.Invoke(ctx, fullMethod("SearchImages"), &SearchRequest{Query: query}, out, jsonCall); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddProduct(ctx context.Context, name, imageURL string) (*AddProductResponse, error) {
	out := new(AddProductResponse)
	in := &AddProductRequest{Name: name, ImageURL: imageURL}
	if err := c.conn.Invoke(ctx, fullMethod("AddProduct"), in, out, jsonCall); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListProducts(ctx context.Context) (*ListProductsResponse, error) {
	out := new(ListProductsResponse)
	if err := c.conn.Invoke(ctx, fullMethod("ListProducts"), &ListProductsRequest{}, out, jsonCall); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.conn.Invoke(ctx, fullMethod("DeleteProduct"), &DeleteProductRequest{ID: id}, new(DeleteProductResponse), jsonCall)
}

func (c *Client) GetThumbnail(ctx context.Context, url string, size int) (*ThumbnailResponse, error) {
	out := new(ThumbnailResponse)
	if err := c.conn.Invoke(ctx, fullMethod("GetThumbnail"), &ThumbnailRequest{URL: url, Size: size}, out, jsonCall); err != nil {
		return nil, err
	}
	return out, nil
}
