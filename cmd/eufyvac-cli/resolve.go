package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dracoqcca/eufyvac/internal/config"
)

func resolveGRPCAddr() string {
	if value := os.Getenv("EUFYVAC_GRPC_ADDR"); value != "" {
		return value
	}
	for _, path := range configSearchPaths() {
		if cfg := loadConfig(path); cfg != nil {
			return cfg.Core.GRPCAddr
		}
	}
	return "localhost:9000"
}

func resolveHTTPAddr() string {
	if value := os.Getenv("EUFYVAC_HTTP_ADDR"); value != "" {
		return value
	}
	for _, path := range configSearchPaths() {
		if cfg := loadConfig(path); cfg != nil {
			return cfg.Core.HTTPAddr
		}
	}
	return "localhost:8080"
}

func configSearchPaths() []string {
	paths := []string{config.DefaultPath}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "eufyvac", "config.yaml"))
	}
	return paths
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		return nil
	}
	return cfg
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	replacer := strings.NewReplacer(" ", "_", "-", "_")
	name = replacer.Replace(name)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return name
}

func resolveNamedID(kind, input string, options map[string]string) (string, error) {
	needle := normalizeName(input)
	for label, id := range options {
		if normalizeName(label) == needle || id == input {
			return id, nil
		}
	}
	available := make([]string, 0, len(options))
	for label := range options {
		available = append(available, label)
	}
	sort.Strings(available)
	return "", fmt.Errorf("%s %q not found. Available: %s", kind, input, strings.Join(available, ", "))
}
