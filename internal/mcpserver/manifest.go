package mcpserver

import (
	"encoding/json"

	"github.com/panbanda/formulint/pkg/config"
)

const (
	serverName        = "formulint"
	serverTitle       = "formulint spreadsheet diagnostics"
	registryName      = "io.github.panbanda/" + serverName
	serverDescription = "Spreadsheet formula diagnostics: errors, circular references, portability and recalculation cost"
	manifestSchema    = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	repositoryURL     = "https://github.com/panbanda/" + serverName
	imageName         = "ghcr.io/panbanda/" + serverName

	// workbookMount is where the container sees the host's workbooks.
	workbookMount = "/workbooks"
)

// Manifest is the registry entry (server.json) for the server.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	WebsiteURL  string      `json:"websiteUrl,omitempty"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

// Repository points at the source.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package is one way to run the server.
type Package struct {
	RegistryType         string                `json:"registryType"`
	Identifier           string                `json:"identifier"`
	Version              string                `json:"version,omitempty"`
	RuntimeArguments     []Argument            `json:"runtimeArguments,omitempty"`
	PackageArguments     []Argument            `json:"packageArguments,omitempty"`
	EnvironmentVariables []EnvironmentVariable `json:"environmentVariables,omitempty"`
	Transport            Transport             `json:"transport"`
}

// Argument is a command-line argument. Value may hold {placeholders}
// resolved from Variables by the client.
type Argument struct {
	Type        string           `json:"type"`
	Name        string           `json:"name,omitempty"`
	Value       string           `json:"value,omitempty"`
	Description string           `json:"description,omitempty"`
	IsRequired  bool             `json:"isRequired,omitempty"`
	Variables   map[string]Input `json:"variables,omitempty"`
}

// Input is a value the client asks the user for.
type Input struct {
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired,omitempty"`
	Format      string `json:"format,omitempty"`
}

// EnvironmentVariable is an optional setting passed to the server.
type EnvironmentVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired,omitempty"`
	Format      string `json:"format,omitempty"`
}

// Transport describes the communication method.
type Transport struct {
	Type string `json:"type"`
}

// environment lists the variables the server reads at startup.
func environment() []EnvironmentVariable {
	return []EnvironmentVariable{
		{
			Name:        config.EnvConfig,
			Description: "Path to a formulint.toml, .yaml or .json config file",
			Format:      "filepath",
		},
		{
			Name:        config.EnvLogLevel,
			Description: "Log level written to stderr: debug, info, warn or error",
		},
	}
}

// ociPackage runs the server image with the user's workbook directory
// mounted, so tool calls take paths under workbookMount.
func ociPackage(version string) Package {
	return Package{
		RegistryType: "oci",
		Identifier:   imageName + ":" + version,
		RuntimeArguments: []Argument{
			{
				Type:        "named",
				Name:        "--volume",
				Value:       "{workbook_dir}:" + workbookMount,
				Description: "Mount the directory holding the workbooks to analyze",
				IsRequired:  true,
				Variables: map[string]Input{
					"workbook_dir": {
						Description: "Host directory with .xlsx, .xlsm or .csv files",
						IsRequired:  true,
						Format:      "filepath",
					},
				},
			},
		},
		PackageArguments:     []Argument{{Type: "positional", Value: "mcp"}},
		EnvironmentVariables: environment(),
		Transport:            Transport{Type: "stdio"},
	}
}

// GenerateManifest creates the MCP server manifest JSON.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" || version == "dev" {
		version = "0.0.0"
	}

	manifest := Manifest{
		Schema:      manifestSchema,
		Name:        registryName,
		Title:       serverTitle,
		Description: serverDescription,
		Version:     version,
		WebsiteURL:  repositoryURL,
		Repository:  &Repository{URL: repositoryURL, Source: "github"},
		Packages:    []Package{ociPackage(version)},
	}
	return json.MarshalIndent(manifest, "", "  ")
}
