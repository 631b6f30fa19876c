// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package flexfolioconfig provides configuration parsing and validation for flexfolio.
//
// Configuration is stored at ~/.config/flexfolio/config.yaml (or
// $FLEXFOLIO_CONFIG_DIR/config.yaml). The Flex Web Service token is never
// stored in the file; it must be set via the FLEXFOLIO_TOKEN environment
// variable.
package flexfolioconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfoliocalendar"
	"github.com/flexfolio/flexfolio/internal/flexfolio/flexfolionormalize"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the configuration file within the config directory.
const ConfigFileName = "config.yaml"

// configTemplate is the default configuration file template with comments.
// yaml.v3 does not preserve comments, so we hardcode the template string.
const configTemplate = `# The configuration file version.
#
# Required. The only current valid version is v1.
version: v1
# IBKR Flex Query configuration.
#
# Create a Flex Query at https://www.interactivebrokers.com under
# Performance & Reports > Flex Queries. Include the Trades, Cash Transactions,
# Change in NAV / Equity Summary, and Open Positions sections with all fields
# enabled, and choose date format yyyyMMdd.
#
# The Flex Web Service token must be set via the FLEXFOLIO_TOKEN environment variable.
ibkr:
  # The Flex Query ID (visible next to your query name in the IBKR portal).
  #
  # Required for the fetch and probe commands.
  query_id: ""
# Normalization policies.
#
# Optional. These cover the broker-report conventions that vary between
# report configurations.
# normalize:
#   # How NAV gaps (e.g., weekends with no report) are filled:
#   # carry-forward (default) or strict.
#   nav_fill: carry-forward
#   # How Positions dates before the period-end snapshot are populated:
#   # absent (default) or zero.
#   position_fill: absent
`

// ExternalConfig is the YAML-serializable configuration file structure.
type ExternalConfig struct {
	// Version is the configuration file version (must be "v1").
	Version string `yaml:"version"`
	// IBKR holds the Interactive Brokers Flex Query configuration.
	IBKR ExternalIBKRConfig `yaml:"ibkr"`
	// Normalize holds the normalization policy configuration.
	Normalize ExternalNormalizeConfig `yaml:"normalize"`
}

// ExternalIBKRConfig holds IBKR-specific configuration.
type ExternalIBKRConfig struct {
	// QueryID is the Flex Query ID.
	QueryID string `yaml:"query_id"`
}

// ExternalNormalizeConfig holds the normalization policy configuration.
type ExternalNormalizeConfig struct {
	// NAVFill is the NAV gap-fill policy ("carry-forward" or "strict").
	NAVFill string `yaml:"nav_fill"`
	// PositionFill is the pre-snapshot Positions policy ("absent" or "zero").
	PositionFill string `yaml:"position_fill"`
}

// Config is the validated runtime configuration derived from the config file.
type Config struct {
	// IBKRQueryID is the Flex Query ID, may be empty when only normalizing
	// previously saved statements.
	IBKRQueryID string
	// NAVFill is the NAV gap-fill policy.
	NAVFill flexfoliocalendar.FillPolicy
	// PositionFill is the pre-snapshot Positions policy.
	PositionFill flexfolionormalize.PositionFillPolicy
}

// NewConfig validates an ExternalConfig and returns a runtime Config.
func NewConfig(externalConfig ExternalConfig) (*Config, error) {
	if externalConfig.Version != "v1" {
		return nil, fmt.Errorf("unsupported config version %q, must be v1", externalConfig.Version)
	}
	navFill := flexfoliocalendar.FillCarryForward
	if externalConfig.Normalize.NAVFill != "" {
		var err error
		navFill, err = flexfoliocalendar.ParseFillPolicy(externalConfig.Normalize.NAVFill)
		if err != nil {
			return nil, fmt.Errorf("normalize.nav_fill: %w", err)
		}
	}
	positionFill := flexfolionormalize.PositionFillAbsent
	if externalConfig.Normalize.PositionFill != "" {
		var err error
		positionFill, err = flexfolionormalize.ParsePositionFillPolicy(externalConfig.Normalize.PositionFill)
		if err != nil {
			return nil, fmt.Errorf("normalize.position_fill: %w", err)
		}
	}
	return &Config{
		IBKRQueryID:  externalConfig.IBKR.QueryID,
		NAVFill:      navFill,
		PositionFill: positionFill,
	}, nil
}

// ConfigFilePath returns the path to the configuration file within the given config directory.
func ConfigFilePath(configDirPath string) string {
	return filepath.Join(configDirPath, ConfigFileName)
}

// ReadConfig reads and validates the configuration file from the given config directory.
// A missing file is valid and yields the default configuration: the config
// file only becomes mandatory when a command needs a query ID.
func ReadConfig(configDirPath string) (*Config, error) {
	filePath := ConfigFilePath(configDirPath)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewConfig(ExternalConfig{Version: "v1"})
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var externalConfig ExternalConfig
	if err := unmarshalYAMLStrict(data, &externalConfig); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
	}
	return NewConfig(externalConfig)
}

// InitConfig creates a new configuration file with a documented template.
// Creates the config directory if it does not exist.
// Returns the path to the created file, or an error if the file already exists.
func InitConfig(configDirPath string) (string, error) {
	filePath := ConfigFilePath(configDirPath)
	if _, err := os.Stat(filePath); err == nil {
		return "", fmt.Errorf("configuration file already exists: %s", filePath)
	}
	// Create the config directory if it does not exist.
	if err := os.MkdirAll(configDirPath, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(configTemplate), 0o644); err != nil {
		return "", err
	}
	return filePath, nil
}

// ValidateConfig reads and validates the configuration file from the given config directory.
// Unlike ReadConfig, a missing file is an error here: validating nothing is a mistake.
func ValidateConfig(configDirPath string) error {
	filePath := ConfigFilePath(configDirPath)
	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return errors.New("configuration file not found at " + filePath + ", run \"flexfolio config init\" to create one")
		}
		return err
	}
	_, err := ReadConfig(configDirPath)
	return err
}

// unmarshalYAMLStrict unmarshals the data as YAML with strict field checking.
// If the data length is 0, this is a no-op.
func unmarshalYAMLStrict(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	yamlDecoder := yaml.NewDecoder(bytes.NewReader(data))
	// Reject unknown fields.
	yamlDecoder.KnownFields(true)
	if err := yamlDecoder.Decode(v); err != nil {
		return fmt.Errorf("could not unmarshal as YAML: %w", err)
	}
	return nil
}
