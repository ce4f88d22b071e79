// Package config provides the unified configuration for nebula-crm connectors.
// A single BaseConfig structure is shared by the REST source and the CRM
// destination; each connector reads the sections it needs and validates
// them once at construction.
//
// The configuration is organized into logical sections:
//   - Endpoint: base URL, resource path or entity, extra headers
//   - Paging: pagination style, page size, filters and the record cap
//   - Upsert: identity strategy and unique/id properties
//   - Timeouts, Reliability, Security, Observability
//
// Example usage:
//
//	cfg := config.NewBaseConfig("orders", "rest")
//	cfg.Endpoint.BaseURL = "https://erp.example.com/odata"
//	cfg.Endpoint.Path = "Orders"
//	if err := cfg.ValidateSource(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-crm/pkg/errors"
)

// Pagination styles understood by the REST source.
const (
	PaginationOData      = "odata"
	PaginationPageNumber = "page"
)

// Identity strategies understood by the CRM destination.
const (
	StrategySearch   = "search"
	StrategyDirectID = "direct_id"
)

// BaseConfig is the configuration structure every connector uses.
type BaseConfig struct {
	// Name identifies the connector instance
	Name string `yaml:"name" json:"name"`
	// Type selects the registered connector (e.g. "rest", "crm")
	Type string `yaml:"type" json:"type"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version"`

	Endpoint      EndpointConfig      `yaml:"endpoint" json:"endpoint"`
	Paging        PagingConfig        `yaml:"paging" json:"paging"`
	Upsert        UpsertConfig        `yaml:"upsert" json:"upsert"`
	Timeouts      TimeoutConfig       `yaml:"timeouts" json:"timeouts"`
	Reliability   ReliabilityConfig   `yaml:"reliability" json:"reliability"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// EndpointConfig locates the remote API.
type EndpointConfig struct {
	// BaseURL is the API root, without a trailing slash
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Path is the resource path read by sources
	Path string `yaml:"path" json:"path"`
	// Entity is the CRM object type written by destinations (contacts, companies, ...)
	Entity string `yaml:"entity" json:"entity"`
	// Headers are sent with every request in addition to auth headers
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// PagingConfig controls how a source walks pages.
type PagingConfig struct {
	// Style is "odata" ($top/$skip) or "page" (page/page_size)
	Style string `yaml:"style" json:"style"`
	// PageSize is the number of records requested per page
	PageSize int `yaml:"page_size" json:"page_size"`
	// Filter is sent as $filter for OData sources
	Filter string `yaml:"filter" json:"filter"`
	// Expand is sent as $expand for OData sources
	Expand string `yaml:"expand" json:"expand"`
	// MaxRecords caps the number of records read (0 = unbounded)
	MaxRecords int `yaml:"max_records" json:"max_records"`
	// VendorParams overrides the fixed vendor query flags
	VendorParams map[string]string `yaml:"vendor_params" json:"vendor_params"`
}

// UpsertConfig controls how a destination resolves record identity.
type UpsertConfig struct {
	// Strategy is "search" or "direct_id"
	Strategy string `yaml:"strategy" json:"strategy"`
	// UniqueProperty overrides the entity's default unique property for search
	UniqueProperty string `yaml:"unique_property" json:"unique_property"`
	// IDField names an extra input field holding the record id for direct_id
	IDField string `yaml:"id_field" json:"id_field"`
	// IDProperty keys retrieve and update calls by a custom unique property
	IDProperty string `yaml:"id_property" json:"id_property"`
}

// TimeoutConfig contains all timeout-related settings.
type TimeoutConfig struct {
	// Request timeout for individual HTTP calls
	Request time.Duration `yaml:"request" json:"request"`
	// Connection timeout for establishing connections
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Idle timeout before closing inactive connections
	Idle time.Duration `yaml:"idle" json:"idle"`
	// KeepAlive interval for TCP connections
	KeepAlive time.Duration `yaml:"keep_alive" json:"keep_alive"`
}

// ReliabilityConfig contains error handling settings. There is no retry:
// failed calls surface to the caller unchanged.
type ReliabilityConfig struct {
	// RateLimitPerSec limits requests per second (0 = unlimited)
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	// FailFast stops a sync on the first failed record instead of continuing
	FailFast bool `yaml:"fail_fast" json:"fail_fast"`
}

// SecurityConfig contains authentication settings.
type SecurityConfig struct {
	// TLSSkipVerify disables certificate verification (insecure)
	TLSSkipVerify bool `yaml:"tls_skip_verify" json:"tls_skip_verify"`
	// AuthType is "none", "bearer" or "basic"; empty infers from Credentials
	AuthType string `yaml:"auth_type" json:"auth_type"`
	// Credentials holds token, username and password (use env vars in production)
	Credentials map[string]string `yaml:"credentials" json:"credentials"`
}

// ObservabilityConfig contains monitoring settings.
type ObservabilityConfig struct {
	// EnableMetrics activates Prometheus collectors
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates OpenTelemetry spans
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewBaseConfig creates a BaseConfig with defaults that work for most APIs.
func NewBaseConfig(name, connectorType string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Type:    connectorType,
		Version: "1.0.0",
		Endpoint: EndpointConfig{
			Headers: make(map[string]string),
		},
		Paging: PagingConfig{
			Style:    PaginationOData,
			PageSize: 100,
		},
		Upsert: UpsertConfig{
			Strategy: StrategySearch,
		},
		Timeouts: TimeoutConfig{
			Request:    30 * time.Second,
			Connection: 10 * time.Second,
			Idle:       90 * time.Second,
			KeepAlive:  30 * time.Second,
		},
		Security: SecurityConfig{
			Credentials: make(map[string]string),
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			LogLevel:      "info",
		},
	}
}

// Validate checks the fields shared by every connector.
func (bc *BaseConfig) Validate() error {
	if bc.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "name is required")
	}
	if bc.Type == "" {
		return errors.New(errors.ErrorTypeConfig, "type is required")
	}
	if strings.TrimSpace(bc.Endpoint.BaseURL) == "" {
		return errors.New(errors.ErrorTypeConfig, "endpoint.base_url is required")
	}
	if bc.Reliability.RateLimitPerSec < 0 {
		return errors.New(errors.ErrorTypeConfig, "reliability.rate_limit_per_sec cannot be negative")
	}
	switch strings.ToLower(bc.Security.AuthType) {
	case "", "none", "bearer", "basic":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported security.auth_type %q", bc.Security.AuthType)
	}
	return nil
}

// ValidateSource checks the sections a paginated source needs.
func (bc *BaseConfig) ValidateSource() error {
	if err := bc.Validate(); err != nil {
		return err
	}
	if bc.Paging.PageSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "paging.page_size must be positive")
	}
	if bc.Paging.MaxRecords < 0 {
		return errors.New(errors.ErrorTypeConfig, "paging.max_records cannot be negative")
	}
	switch bc.Paging.Style {
	case PaginationOData, PaginationPageNumber:
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported paging.style %q", bc.Paging.Style)
	}
	return nil
}

// ValidateDestination checks the sections a CRM destination needs.
func (bc *BaseConfig) ValidateDestination() error {
	if err := bc.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(bc.Endpoint.Entity) == "" {
		return errors.New(errors.ErrorTypeConfig, "endpoint.entity is required")
	}
	switch bc.Upsert.Strategy {
	case StrategySearch, StrategyDirectID:
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported upsert.strategy %q", bc.Upsert.Strategy)
	}
	return nil
}

// IsRateLimited returns true if rate limiting is enabled
func (r *ReliabilityConfig) IsRateLimited() bool {
	return r.RateLimitPerSec > 0
}

// HasCredentials returns true if credentials are configured
func (s *SecurityConfig) HasCredentials() bool {
	return len(s.Credentials) > 0
}
