package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/videofeed/internal/timex"
	"github.com/pelletier/go-toml/v2"
)

// FileConfig is the on-disk form of Config. Durations accept "10m" style
// strings (JSON also takes integer nanoseconds). Keys absent from the file
// keep their current value.
type FileConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http" toml:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn" toml:"database_dsn"`
	SecretKey                   string         `json:"secret_key" toml:"secret_key"`
	AdminPasswordHash           string         `json:"admin_password_hash" toml:"admin_password_hash"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" toml:"access_token_validity_duration"`
	S3RootUser                  string         `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket" toml:"s3_bucket"`
	S3Region                    string         `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
	S3PublicBaseURL             string         `json:"s3_public_base_url" toml:"s3_public_base_url"`
	S3KeyPrefix                 string         `json:"s3_key_prefix" toml:"s3_key_prefix"`
	SignedURLValidityDuration   timex.Duration `json:"signed_url_validity_duration" toml:"signed_url_validity_duration"`
	CacheControl                string         `json:"cache_control" toml:"cache_control"`
	AllowedOrigin               string         `json:"allowed_origin" toml:"allowed_origin"`
	UploadRateLimit             float64        `json:"upload_rate_limit" toml:"upload_rate_limit"`
	UploadRateBurst             int            `json:"upload_rate_burst" toml:"upload_rate_burst"`
	TranscoderEndpoint          string         `json:"transcoder_endpoint" toml:"transcoder_endpoint"`
	TranscoderAPIKey            string         `json:"transcoder_api_key" toml:"transcoder_api_key"`
	TranscoderTemplate          string         `json:"transcoder_template" toml:"transcoder_template"`
	TranscodeOutputPrefix       string         `json:"transcode_output_prefix" toml:"transcode_output_prefix"`
	LogBackend                  string         `json:"log_backend" toml:"log_backend"`
	LogLevel                    string         `json:"log_level" toml:"log_level"`
}

func fileConfigFrom(c *Config) *FileConfig {
	return &FileConfig{
		EndpointAddrHTTP:            c.EndpointAddrHTTP,
		DatabaseDSN:                 c.DatabaseDSN,
		SecretKey:                   c.SecretKey,
		AdminPasswordHash:           c.AdminPasswordHash,
		AccessTokenValidityDuration: timex.Duration{Duration: c.AccessTokenValidityDuration},
		S3RootUser:                  c.S3RootUser,
		S3RootPassword:              c.S3RootPassword,
		S3Bucket:                    c.S3Bucket,
		S3Region:                    c.S3Region,
		S3BaseEndpoint:              c.S3BaseEndpoint,
		S3PublicBaseURL:             c.S3PublicBaseURL,
		S3KeyPrefix:                 c.S3KeyPrefix,
		SignedURLValidityDuration:   timex.Duration{Duration: c.SignedURLValidityDuration},
		CacheControl:                c.CacheControl,
		AllowedOrigin:               c.AllowedOrigin,
		UploadRateLimit:             c.UploadRateLimit,
		UploadRateBurst:             c.UploadRateBurst,
		TranscoderEndpoint:          c.TranscoderEndpoint,
		TranscoderAPIKey:            c.TranscoderAPIKey,
		TranscoderTemplate:          c.TranscoderTemplate,
		TranscodeOutputPrefix:       c.TranscodeOutputPrefix,
		LogBackend:                  c.LogBackend,
		LogLevel:                    c.LogLevel,
	}
}

func (f *FileConfig) apply(c *Config) {
	c.EndpointAddrHTTP = f.EndpointAddrHTTP
	c.DatabaseDSN = f.DatabaseDSN
	c.SecretKey = f.SecretKey
	c.AdminPasswordHash = f.AdminPasswordHash
	c.AccessTokenValidityDuration = f.AccessTokenValidityDuration.Duration
	c.S3RootUser = f.S3RootUser
	c.S3RootPassword = f.S3RootPassword
	c.S3Bucket = f.S3Bucket
	c.S3Region = f.S3Region
	c.S3BaseEndpoint = f.S3BaseEndpoint
	c.S3PublicBaseURL = f.S3PublicBaseURL
	c.S3KeyPrefix = f.S3KeyPrefix
	c.SignedURLValidityDuration = f.SignedURLValidityDuration.Duration
	c.CacheControl = f.CacheControl
	c.AllowedOrigin = f.AllowedOrigin
	c.UploadRateLimit = f.UploadRateLimit
	c.UploadRateBurst = f.UploadRateBurst
	c.TranscoderEndpoint = f.TranscoderEndpoint
	c.TranscoderAPIKey = f.TranscoderAPIKey
	c.TranscoderTemplate = f.TranscoderTemplate
	c.TranscodeOutputPrefix = f.TranscodeOutputPrefix
	c.LogBackend = f.LogBackend
	c.LogLevel = f.LogLevel
}

// parseFile overlays the config file at path onto cfg. Files ending in
// .toml are decoded as TOML, everything else as JSON. An empty path is a
// no-op.
func parseFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	fc := fileConfigFrom(cfg)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, fc)
	} else {
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}
