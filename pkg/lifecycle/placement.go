package lifecycle

import (
	"fmt"
	"slices"
	"strings"

	"github.com/backkem/clusterhost/pkg/datamodel"
)

type placementKind uint8

const (
	placementAny placementKind = iota
	placementFixed
)

// Placement restricts the endpoints a binding may be brought up on.
// The zero Placement allows every endpoint.
type Placement struct {
	kind      placementKind
	endpoints []datamodel.EndpointID
}

// RootOnly allows only the root endpoint.
func RootOnly() Placement {
	return FixedEndpoint(datamodel.RootEndpointID)
}

// FixedEndpoint allows exactly one endpoint.
func FixedEndpoint(ep datamodel.EndpointID) Placement {
	return Placement{kind: placementFixed, endpoints: []datamodel.EndpointID{ep}}
}

// Endpoints allows a fixed set of endpoints.
func Endpoints(eps ...datamodel.EndpointID) Placement {
	set := slices.Clone(eps)
	slices.Sort(set)
	return Placement{kind: placementFixed, endpoints: slices.Compact(set)}
}

// AnyEndpoint allows every endpoint.
func AnyEndpoint() Placement {
	return Placement{kind: placementAny}
}

// Allows reports whether ep passes the placement filter.
func (p Placement) Allows(ep datamodel.EndpointID) bool {
	if p.kind == placementAny {
		return true
	}
	_, ok := slices.BinarySearch(p.endpoints, ep)
	return ok
}

func (p Placement) String() string {
	if p.kind == placementAny {
		return "any"
	}
	parts := make([]string, len(p.endpoints))
	for i, ep := range p.endpoints {
		parts[i] = fmt.Sprintf("%d", ep)
	}
	return "endpoints(" + strings.Join(parts, ",") + ")"
}
