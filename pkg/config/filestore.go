package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/fxamacker/cbor/v2"
	"github.com/pion/logging"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// persistedState is the on-disk layout of a FileStore.
type persistedState struct {
	MinUnusedEndpointID *uint16              `cbor:"1,keyasint,omitempty"`
	Attributes          []persistedAttribute `cbor:"2,keyasint,omitempty"`
}

type persistedAttribute struct {
	Endpoint  uint16          `cbor:"1,keyasint"`
	Cluster   uint32          `cbor:"2,keyasint"`
	Attribute uint32          `cbor:"3,keyasint"`
	Value     datamodel.Value `cbor:"4,keyasint"`
}

// FileStore persists attribute writes and node counters to a CBOR file.
//
// Reads consult the persisted overlay first and then the defaults layer,
// usually a MemoryStore seeded from the device configuration. Writes and
// deletes only touch the overlay, so deleting a persisted value reveals
// its configured default again. Every mutation rewrites the file
// atomically.
type FileStore struct {
	mu        sync.RWMutex
	path      string
	defaults  AttributeStore
	overlay   map[datamodel.ConcreteAttributePath]datamodel.Value
	minUnused *uint16

	log logging.LeveledLogger
}

// OpenFileStore loads the state file at path, creating an empty store if
// the file does not exist yet. defaults may be nil.
func OpenFileStore(path string, defaults AttributeStore, lf logging.LoggerFactory) (*FileStore, error) {
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	s := &FileStore{
		path:     path,
		defaults: defaults,
		overlay:  make(map[datamodel.ConcreteAttributePath]datamodel.Value),
		log:      lf.NewLogger("config"),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debugf("state file %s not found, starting empty", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}

	var st persistedState
	if err := decMode.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptState, path, err)
	}
	s.minUnused = st.MinUnusedEndpointID
	for _, a := range st.Attributes {
		p := datamodel.ConcreteAttributePath{
			Endpoint:  datamodel.EndpointID(a.Endpoint),
			Cluster:   datamodel.ClusterID(a.Cluster),
			Attribute: datamodel.AttributeID(a.Attribute),
		}
		s.overlay[p] = a.Value
	}
	s.log.Debugf("loaded %d persisted attribute(s) from %s", len(s.overlay), path)
	return s, nil
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// ReadAttribute implements AttributeStore.
func (s *FileStore) ReadAttribute(path datamodel.ConcreteAttributePath) (datamodel.Value, bool, error) {
	s.mu.RLock()
	v, ok := s.overlay[path]
	s.mu.RUnlock()
	if ok {
		return v, true, nil
	}
	if s.defaults == nil {
		return datamodel.Value{}, false, nil
	}
	return s.defaults.ReadAttribute(path)
}

// WriteAttribute implements AttributeStore.
func (s *FileStore) WriteAttribute(path datamodel.ConcreteAttributePath, v datamodel.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.overlay[path]
	s.overlay[path] = v
	if err := s.saveLocked(); err != nil {
		if had {
			s.overlay[path] = prev
		} else {
			delete(s.overlay, path)
		}
		return err
	}
	return nil
}

// DeleteAttribute implements AttributeStore. Only the persisted value is
// removed.
func (s *FileStore) DeleteAttribute(path datamodel.ConcreteAttributePath) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.overlay[path]
	if !had {
		return nil
	}
	delete(s.overlay, path)
	if err := s.saveLocked(); err != nil {
		s.overlay[path] = prev
		return err
	}
	return nil
}

// LoadMinUnusedEndpointID implements Store.
func (s *FileStore) LoadMinUnusedEndpointID() (datamodel.EndpointID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.minUnused == nil {
		return 0, false, nil
	}
	return datamodel.EndpointID(*s.minUnused), true, nil
}

// SaveMinUnusedEndpointID implements Store.
func (s *FileStore) SaveMinUnusedEndpointID(id datamodel.EndpointID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.minUnused
	v := uint16(id)
	s.minUnused = &v
	if err := s.saveLocked(); err != nil {
		s.minUnused = prev
		return err
	}
	return nil
}

func (s *FileStore) saveLocked() error {
	st := persistedState{MinUnusedEndpointID: s.minUnused}
	for p, v := range s.overlay {
		st.Attributes = append(st.Attributes, persistedAttribute{
			Endpoint:  uint16(p.Endpoint),
			Cluster:   uint32(p.Cluster),
			Attribute: uint32(p.Attribute),
			Value:     v,
		})
	}
	slices.SortFunc(st.Attributes, func(a, b persistedAttribute) int {
		switch {
		case a.Endpoint != b.Endpoint:
			return int(a.Endpoint) - int(b.Endpoint)
		case a.Cluster != b.Cluster:
			if a.Cluster < b.Cluster {
				return -1
			}
			return 1
		case a.Attribute < b.Attribute:
			return -1
		case a.Attribute > b.Attribute:
			return 1
		}
		return 0
	})

	data, err := encMode.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// writeFileAtomic replaces path with data via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
