package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/imgscout/catalog"
	"github.com/imgscout/scrapers"
	"github.com/imgscout/thumbs"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// Searcher runs one image search and delivers its single result.
type Searcher interface {
	Search(ctx context.Context, query string) <-chan scrapers.Result
}

// Catalog is the product store behind the API.
type Catalog interface {
	Append(ctx context.Context, name, imageURL string) (int64, error)
	List(ctx context.Context) ([]catalog.Product, error)
	Get(ctx context.Context, id int64) (catalog.Product, error)
	Delete(ctx context.Context, id int64) error
}

// Thumbnailer renders a remote image as a PNG thumbnail.
type Thumbnailer interface {
	PNG(ctx context.Context, url string, size int) ([]byte, error)
}

// GRPCServer implements the imgscout.Catalog service
type GRPCServer struct {
	Searcher    Searcher
	Catalog     Catalog
	Thumbnailer Thumbnailer
	Logger      zerolog.Logger
	Version     string
}

// NewGRPCServer returns a grpc.Server with the Catalog and health services registered.
func NewGRPCServer(impl *GRPCServer) *grpc.Server {
	s := grpc.NewServer()
	RegisterCatalogService(s, impl)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s)
	return s
}

// Serve listens on port and serves until ctx is cancelled.
func Serve(ctx context.Context, impl *GRPCServer, port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return ServeListener(ctx, impl, lis)
}

// ServeListener serves on lis until ctx is cancelled, then stops gracefully.
func ServeListener(ctx context.Context, impl *GRPCServer, lis net.Listener) error {
	s := NewGRPCServer(impl)

	impl.Logger.Info().
		Str("addr", lis.Addr().String()).
		Str("version", impl.Version).
		Msg("gRPC server listening")

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	impl.Logger.Info().Msg("gRPC server stopped")
	return nil
}

// SearchImages implements the SearchImages RPC
func (s *GRPCServer) SearchImages(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	s.Logger.Info().Str("query", req.Query).Msg("SearchImages requested")

	var res scrapers.Result
	select {
	case r, ok := <-s.Searcher.Search(ctx, req.Query):
		if !ok {
			return nil, status.Error(codes.Internal, "search ended without a result")
		}
		res = r
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}

	resp := &SearchResponse{
		ID:         res.ID,
		Query:      res.Query,
		Images:     res.Images,
		DurationMs: res.Duration.Milliseconds(),
	}
	if resp.Images == nil {
		resp.Images = []string{}
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return resp, nil
}

// AddProduct implements the AddProduct RPC
func (s *GRPCServer) AddProduct(ctx context.Context, req *AddProductRequest) (*AddProductResponse, error) {
	id, err := s.Catalog.Append(ctx, req.Name, req.ImageURL)
	if err != nil {
		return nil, toStatus(err)
	}
	p, err := s.Catalog.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AddProductResponse{Product: p}, nil
}

// ListProducts implements the ListProducts RPC
func (s *GRPCServer) ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	products, err := s.Catalog.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListProductsResponse{Products: products}, nil
}

// DeleteProduct implements the DeleteProduct RPC
func (s *GRPCServer) DeleteProduct(ctx context.Context, req *DeleteProductRequest) (*DeleteProductResponse, error) {
	if err := s.Catalog.Delete(ctx, req.ID); err != nil {
		return nil, toStatus(err)
	}
	s.Logger.Info().Int64("id", req.ID).Msg("product deleted")
	return &DeleteProductResponse{}, nil
}

// GetThumbnail implements the GetThumbnail RPC
func (s *GRPCServer) GetThumbnail(ctx context.Context, req *ThumbnailRequest) (*ThumbnailResponse, error) {
	if !scrapers.IsFetchable(req.URL) {
		return nil, status.Errorf(codes.InvalidArgument, "not a fetchable url: %q", req.URL)
	}
	size := req.Size
	if size <= 0 {
		size = thumbs.DefaultSize
	}
	data, err := s.Thumbnailer.PNG(ctx, req.URL, size)
	if err != nil {
		s.Logger.Warn().Err(err).Str("url", req.URL).Msg("thumbnail failed")
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return &ThumbnailResponse{PNG: data}, nil
}

// toStatus maps catalog errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, catalog.ErrInvalidImageURL):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
