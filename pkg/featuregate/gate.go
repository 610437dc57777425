// Package featuregate resolves which optional parts of a cluster are
// enabled on an endpoint.
//
// The answer comes from the node's attribute configuration: the cluster's
// FeatureMap global attribute and the presence of each optional attribute.
// Resolution never fails. Missing configuration means "disabled".
package featuregate

import (
	"slices"

	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/pion/logging"
)

// Reader gives read access to configured attribute values.
//
// ok is false when the attribute is not configured on that path.
type Reader interface {
	ReadAttribute(path datamodel.ConcreteAttributePath) (v datamodel.Value, ok bool, err error)
}

// Snapshot is the resolved optional configuration of one cluster instance.
// The zero value has no features and nothing enabled.
type Snapshot struct {
	featureMap uint32
	enabled    []datamodel.AttributeID
}

// NewSnapshot builds a snapshot directly, mostly for tests and callers
// that know their configuration up front.
func NewSnapshot(featureMap uint32, enabled ...datamodel.AttributeID) Snapshot {
	s := Snapshot{featureMap: featureMap, enabled: slices.Clone(enabled)}
	slices.Sort(s.enabled)
	s.enabled = slices.Compact(s.enabled)
	return s
}

// FeatureMap returns the resolved feature bitmap.
func (s Snapshot) FeatureMap() uint32 {
	return s.featureMap
}

// HasFeature reports whether every bit in bits is set.
func (s Snapshot) HasFeature(bits uint32) bool {
	return s.featureMap&bits == bits
}

// Has reports whether the optional attribute is enabled.
func (s Snapshot) Has(attr datamodel.AttributeID) bool {
	_, ok := slices.BinarySearch(s.enabled, attr)
	return ok
}

// Enabled returns the enabled optional attributes in ascending order.
func (s Snapshot) Enabled() []datamodel.AttributeID {
	return slices.Clone(s.enabled)
}

// Gate resolves snapshots from a Reader.
type Gate struct {
	reader Reader
	log    logging.LeveledLogger
}

// New creates a gate over reader. A nil factory uses the pion default.
func New(reader Reader, lf logging.LoggerFactory) *Gate {
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	return &Gate{reader: reader, log: lf.NewLogger("featuregate")}
}

// Resolve reads the feature map of cluster on endpoint and checks which of
// attrs are configured there.
func (g *Gate) Resolve(endpoint datamodel.EndpointID, cluster datamodel.ClusterID, attrs ...datamodel.AttributeID) Snapshot {
	base := datamodel.ConcreteClusterPath{Endpoint: endpoint, Cluster: cluster}

	var s Snapshot
	s.featureMap = g.readFeatureMap(base)

	for _, attr := range attrs {
		p := base.Attribute(attr)
		_, ok, err := g.reader.ReadAttribute(p)
		if err != nil {
			g.log.Warnf("optional attribute %s unreadable, treating as disabled: %v", p, err)
			continue
		}
		if ok {
			s.enabled = append(s.enabled, attr)
		}
	}
	slices.Sort(s.enabled)
	s.enabled = slices.Compact(s.enabled)
	return s
}

func (g *Gate) readFeatureMap(base datamodel.ConcreteClusterPath) uint32 {
	p := base.Attribute(datamodel.GlobalAttrFeatureMap)
	v, ok, err := g.reader.ReadAttribute(p)
	if err != nil {
		g.log.Warnf("feature map %s unreadable, using 0: %v", p, err)
		return 0
	}
	if !ok {
		return 0
	}
	fm, err := v.AsUint()
	if err != nil || fm > 0xFFFFFFFF {
		g.log.Warnf("feature map %s has invalid value %s, using 0", p, v)
		return 0
	}
	return uint32(fm)
}
