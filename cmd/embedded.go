package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/washu-tag/context-gateway/internal/config"
)

//go:embed configs/*.yaml
var configsFS embed.FS

const defaultConfigName = "default"

// getEmbeddedConfig returns the raw bytes of an embedded config file.
// name can be with or without the .yaml extension.
func getEmbeddedConfig(name string) ([]byte, error) {
	if !strings.HasSuffix(name, ".yaml") {
		name += ".yaml"
	}
	return configsFS.ReadFile(filepath.ToSlash(filepath.Join("configs", name)))
}

// listEmbeddedConfigs returns the names of all embedded config files (without extension).
func listEmbeddedConfigs() ([]string, error) {
	entries, err := configsFS.ReadDir("configs")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded configs: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// resolveConfig resolves the config bytes for a command.
// Checks: user flag -> filesystem locations -> embedded config.
// The user flag may also name an embedded config ("default").
// Returns raw bytes and source description.
func resolveConfig(userConfig string) ([]byte, string, error) {
	if userConfig != "" {
		data, err := os.ReadFile(userConfig)
		if err == nil {
			return data, userConfig, nil
		}
		if data, embErr := getEmbeddedConfig(userConfig); embErr == nil {
			return data, "(embedded) " + userConfig, nil
		}
		names, _ := listEmbeddedConfigs()
		return nil, "", fmt.Errorf("config file not found: %s (embedded: %s)", userConfig, strings.Join(names, ", "))
	}

	homeDir, _ := os.UserHomeDir()

	// Search filesystem in order of preference
	var searchPaths []string
	if homeDir != "" {
		searchPaths = append(searchPaths,
			filepath.Join(homeDir, ".config", "context-gateway", "config.yaml"),
		)
	}
	searchPaths = append(searchPaths, "configs/config.yaml")

	for _, path := range searchPaths {
		if data, err := os.ReadFile(path); err == nil {
			return data, path, nil
		}
	}

	data, err := getEmbeddedConfig(defaultConfigName)
	if err != nil {
		return nil, "", fmt.Errorf("no config file found. Specify --config path")
	}
	return data, "(embedded) " + defaultConfigName + ".yaml", nil
}

// loadConfig resolves and parses the configuration.
func loadConfig(userConfig string) (*config.Config, string, error) {
	data, source, err := resolveConfig(userConfig)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadFromBytes(data)
	if err != nil {
		return nil, source, fmt.Errorf("%s: %w", source, err)
	}
	return cfg, source, nil
}
