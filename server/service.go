package server

import (
	"context"

	"github.com/imgscout/catalog"
	"google.golang.org/grpc"
)

const serviceName = "imgscout.Catalog"

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	ID         string   `json:"id"`
	Query      string   `json:"query"`
	Images     []string `json:"images"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

type AddProductRequest struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

type AddProductResponse struct {
	Product catalog.Product `json:"product"`
}

type ListProductsRequest struct{}

type ListProductsResponse struct {
	Products []catalog.Product `json:"products"`
}

type DeleteProductRequest struct {
	ID int64 `json:"id"`
}

type DeleteProductResponse struct{}

type ThumbnailRequest struct {
	URL  string `json:"url"`
	Size int    `json:"size"`
}

type ThumbnailResponse struct {
	PNG []byte `json:"png"`
}

// CatalogService is the server API for the imgscout.Catalog service.
type CatalogService interface {
	SearchImages(context.Context, *SearchRequest) (*SearchResponse, error)
	AddProduct(context.Context, *AddProductRequest) (*AddProductResponse, error)
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
	DeleteProduct(context.Context, *DeleteProductRequest) (*DeleteProductResponse, error)
	GetThumbnail(context.Context, *ThumbnailRequest) (*ThumbnailResponse, error)
}

// RegisterCatalogService registers srv on s.
func RegisterCatalogService(s grpc.ServiceRegistrar, srv CatalogService) {
	s.RegisterService(&catalogServiceDesc, srv)
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CatalogService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SearchImages", Handler: searchImagesHandler},
		{MethodName: "AddProduct", Handler: addProductHandler},
		{MethodName: "ListProducts", Handler: listProductsHandler},
		{MethodName: "DeleteProduct", Handler: deleteProductHandler},
		{MethodName: "GetThumbnail", Handler: getThumbnailHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "imgscout/catalog",
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

func searchImagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogService).SearchImages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("SearchImages")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogService).SearchImages(ctx, req.(*SearchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func addProductHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AddProductRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogService).AddProduct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("AddProduct")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogService).AddProduct(ctx, req.(*AddProductRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listProductsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListProductsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogService).ListProducts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("ListProducts")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogService).ListProducts(ctx, req.(*ListProductsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteProductHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeleteProductRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogService).DeleteProduct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("DeleteProduct")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogService).DeleteProduct(ctx, req.(*DeleteProductRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getThumbnailHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ThumbnailRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogService).GetThumbnail(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod("GetThumbnail")}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogService).GetThumbnail(ctx, req.(*ThumbnailRequest))
	}
	return interceptor(ctx, in, info, handler)
}
