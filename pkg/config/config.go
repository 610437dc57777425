// Package config loads the device composition of a node and stores its
// attribute configuration.
//
// A DeviceConfig describes the node identity and, per endpoint, the device
// types, flags and clusters it hosts, including each cluster's feature map
// and configured attribute values. Files may be YAML or TOML.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"gopkg.in/yaml.v3"
)

// Format identifies a configuration file encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DeviceConfig is the static composition of a node.
type DeviceConfig struct {
	Node      NodeInfo         `yaml:"node" toml:"node"`
	Endpoints []EndpointConfig `yaml:"endpoints" toml:"endpoints"`
}

// NodeInfo is the identity reported by the Basic Information cluster.
type NodeInfo struct {
	VendorName            string `yaml:"vendor_name" toml:"vendor_name"`
	VendorID              uint16 `yaml:"vendor_id" toml:"vendor_id"`
	ProductName           string `yaml:"product_name" toml:"product_name"`
	ProductID             uint16 `yaml:"product_id" toml:"product_id"`
	NodeLabel             string `yaml:"node_label" toml:"node_label"`
	HardwareVersion       uint16 `yaml:"hardware_version" toml:"hardware_version"`
	HardwareVersionString string `yaml:"hardware_version_string" toml:"hardware_version_string"`
	SoftwareVersion       uint32 `yaml:"software_version" toml:"software_version"`
	SoftwareVersionString string `yaml:"software_version_string" toml:"software_version_string"`
	ManufacturingDate     string `yaml:"manufacturing_date" toml:"manufacturing_date"`
	PartNumber            string `yaml:"part_number" toml:"part_number"`
	ProductURL            string `yaml:"product_url" toml:"product_url"`
	ProductLabel          string `yaml:"product_label" toml:"product_label"`
	SerialNumber          string `yaml:"serial_number" toml:"serial_number"`
	UniqueID              string `yaml:"unique_id" toml:"unique_id"`
}

// EndpointConfig describes one endpoint.
type EndpointConfig struct {
	// ID of the endpoint. 0 is the root endpoint. When adding an endpoint
	// at runtime, 0 asks the node to allocate the next unused ID.
	ID uint16 `yaml:"id" toml:"id"`

	// Destroyable endpoints may be removed at runtime.
	Destroyable bool `yaml:"destroyable" toml:"destroyable"`

	DeviceTypes []DeviceTypeConfig `yaml:"device_types" toml:"device_types"`
	Clusters    []ClusterConfig    `yaml:"clusters" toml:"clusters"`
}

// DeviceTypeConfig is one entry of an endpoint's device type list.
type DeviceTypeConfig struct {
	ID       uint32 `yaml:"id" toml:"id"`
	Revision uint8  `yaml:"revision" toml:"revision"`
}

// ClusterConfig is a server cluster hosted on an endpoint.
type ClusterConfig struct {
	ID         uint32            `yaml:"id" toml:"id"`
	FeatureMap uint32            `yaml:"feature_map" toml:"feature_map"`
	Attributes []AttributeConfig `yaml:"attributes" toml:"attributes"`
}

// AttributeConfig marks an attribute as present and gives its initial
// value. Value may be a scalar, a string or a list of those.
type AttributeConfig struct {
	ID    uint32 `yaml:"id" toml:"id"`
	Value any    `yaml:"value" toml:"value"`
}

// LoadFile reads a device configuration. The format is chosen from the
// file extension: .yaml, .yml or .toml.
func LoadFile(path string) (*DeviceConfig, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".toml":
		format = FormatTOML
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load device config: %w", err)
	}

	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("load device config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a device configuration.
func Parse(data []byte, format Format) (*DeviceConfig, error) {
	var cfg DeviceConfig
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatTOML:
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse toml: unknown key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks endpoint and cluster uniqueness and that every attribute
// value can be represented.
func (c *DeviceConfig) Validate() error {
	seen := make(map[uint16]bool, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		if datamodel.EndpointID(ep.ID) == datamodel.InvalidEndpointID {
			return fmt.Errorf("%w: endpoint 0x%04X is reserved", ErrInvalidConfig, ep.ID)
		}
		if seen[ep.ID] {
			return fmt.Errorf("%w: endpoint %d listed twice", ErrInvalidConfig, ep.ID)
		}
		seen[ep.ID] = true

		if err := ep.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the clusters of one endpoint.
func (e *EndpointConfig) Validate() error {
	clusters := make(map[uint32]bool, len(e.Clusters))
	for _, cl := range e.Clusters {
		if clusters[cl.ID] {
			return fmt.Errorf("%w: endpoint %d lists cluster 0x%04X twice", ErrInvalidConfig, e.ID, cl.ID)
		}
		clusters[cl.ID] = true

		for _, attr := range cl.Attributes {
			if datamodel.AttributeID(attr.ID) == datamodel.GlobalAttrFeatureMap {
				return fmt.Errorf("%w: endpoint %d cluster 0x%04X: use feature_map instead of attribute 0xFFFC",
					ErrInvalidConfig, e.ID, cl.ID)
			}
			if _, err := datamodel.ValueOf(attr.Value); err != nil {
				return fmt.Errorf("%w: endpoint %d cluster 0x%04X attribute 0x%04X: %w",
					ErrInvalidConfig, e.ID, cl.ID, attr.ID, err)
			}
		}
	}
	return nil
}

// Endpoint returns the configuration of endpoint id.
func (c *DeviceConfig) Endpoint(id datamodel.EndpointID) (*EndpointConfig, bool) {
	for i := range c.Endpoints {
		if datamodel.EndpointID(c.Endpoints[i].ID) == id {
			return &c.Endpoints[i], true
		}
	}
	return nil, false
}

// ClusterIDs returns the IDs of the clusters configured on the endpoint,
// in file order.
func (e *EndpointConfig) ClusterIDs() []datamodel.ClusterID {
	ids := make([]datamodel.ClusterID, len(e.Clusters))
	for i, cl := range e.Clusters {
		ids[i] = datamodel.ClusterID(cl.ID)
	}
	return ids
}

// DeviceTypeEntries converts the device type list.
func (e *EndpointConfig) DeviceTypeEntries() []datamodel.DeviceTypeEntry {
	out := make([]datamodel.DeviceTypeEntry, len(e.DeviceTypes))
	for i, dt := range e.DeviceTypes {
		out[i] = datamodel.DeviceTypeEntry{
			DeviceTypeID: datamodel.DeviceTypeID(dt.ID),
			Revision:     dt.Revision,
		}
	}
	return out
}
