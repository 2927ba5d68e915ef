package service

import "github.com/kardianos/service"

const (
	ServiceName        = "imgscout"
	ServiceDisplayName = "imgscout Catalog Service"
	ServiceDescription = "imgscout gRPC server - image search and product catalog"
)

// NewServiceConfig creates a new service configuration
func NewServiceConfig(exePath string, args []string) *service.Config {
	cfg := &service.Config{
		Name:        ServiceName,
		DisplayName: ServiceDisplayName,
		Description: ServiceDescription,
		Executable:  exePath,
		Arguments:   args,
	}

	// Windows-specific options
	cfg.Option = service.KeyValue{
		"StartType": "automatic",
	}

	return cfg
}
