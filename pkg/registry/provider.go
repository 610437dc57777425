package registry

import (
	"context"
	"fmt"

	"github.com/backkem/clusterhost/pkg/datamodel"
)

// Provider routes data model operations to the cluster handler registered
// for the target path. It is the entry point used by the dispatch runtime.
type Provider struct {
	reg *Registry
}

// NewProvider creates a Provider backed by reg.
func NewProvider(reg *Registry) *Provider {
	return &Provider{reg: reg}
}

// ReadAttribute reads an attribute from the cluster serving path.
// Unknown cluster paths return an error wrapping ErrNotFound.
func (p *Provider) ReadAttribute(ctx context.Context, path datamodel.ConcreteAttributePath) (datamodel.Value, error) {
	c, err := p.reg.Lookup(path.ClusterPath())
	if err != nil {
		return datamodel.Value{}, fmt.Errorf("read %s: %w", path, err)
	}
	return c.ReadAttribute(ctx, path)
}

// AttributeList returns the attribute metadata of the cluster at path.
func (p *Provider) AttributeList(path datamodel.ConcreteClusterPath) ([]datamodel.AttributeEntry, error) {
	c, err := p.reg.Lookup(path)
	if err != nil {
		return nil, fmt.Errorf("attribute list %s: %w", path, err)
	}
	return c.AttributeList(path), nil
}

// DataVersion returns the data version of the cluster at path.
func (p *Provider) DataVersion(path datamodel.ConcreteClusterPath) (datamodel.DataVersion, error) {
	c, err := p.reg.Lookup(path)
	if err != nil {
		return 0, fmt.Errorf("data version %s: %w", path, err)
	}
	return c.DataVersion(path), nil
}
