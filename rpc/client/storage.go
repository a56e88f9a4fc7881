package client

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"sync/atomic"
)

// StorageSnapshot is the cached record of a storage
type StorageSnapshot struct {
	Name         string
	Place        string
	OwnerUser    string
	OwnerGroup   string
	LastUsage    uint64
	PrivateValue string
}

func storageSnapshot(place string, desc *common.StorageDescription) *StorageSnapshot {
	return &StorageSnapshot{
		Name:         desc.Name,
		Place:        place,
		OwnerUser:    desc.OwnerUser,
		OwnerGroup:   desc.OwnerGroup,
		LastUsage:    desc.LastUsage,
		PrivateValue: desc.PrivateValue,
	}
}

// MetaStorageOptions tunes creation and resizing of a meta storage
type MetaStorageOptions struct {
	Place        string
	PrivateValue string
	SpaceLimit   uint64
	InodeLimit   uint64
}

// MetaStorageSnapshot is the cached record of a meta storage
type MetaStorageSnapshot struct {
	Name           string
	Place          string
	PrivateValue   string
	LastUsage      uint64
	SpaceLimit     uint64
	InodeLimit     uint64
	SpaceUsed      uint64
	SpaceAvailable uint64
	InodeUsed      uint64
	InodeAvailable uint64
}

func metaStorageSnapshot(place string, desc *common.MetaStorageDescription) *MetaStorageSnapshot {
	return &MetaStorageSnapshot{
		Name:           desc.Name,
		Place:          place,
		PrivateValue:   desc.PrivateValue,
		LastUsage:      desc.LastUsage,
		SpaceLimit:     desc.SpaceLimit,
		InodeLimit:     desc.InodeLimit,
		SpaceUsed:      desc.SpaceUsed,
		SpaceAvailable: desc.SpaceAvailable,
		InodeUsed:      desc.InodeUsed,
		InodeAvailable: desc.InodeAvailable,
	}
}

// --------------------------------------------------------------------------
// Storage Operations (Connection)
// --------------------------------------------------------------------------

func (c *Connection) listStorage(place, mask string) (*common.ListStorageResponse, error) {
	resp, err := c.call(&common.Request{ListStorage: &common.ListStorageRequest{Place: place, Mask: mask}}, 0)
	if err != nil {
		return nil, err
	}
	if resp.StorageList == nil {
		return &common.ListStorageResponse{}, nil
	}
	return resp.StorageList, nil
}

// ListStorages lists the storages of place matching mask ("" for all)
func (c *Connection) ListStorages(place, mask string) ([]*Storage, error) {
	list, err := c.listStorage(place, mask)
	if err != nil {
		return nil, err
	}
	storages := make([]*Storage, 0, len(list.Storages))
	for _, desc := range list.Storages {
		storages = append(storages, c.storage(place, desc))
	}
	return storages, nil
}

// FindStorage returns the storage name in place
func (c *Connection) FindStorage(name, place string) (*Storage, error) {
	storages, err := c.ListStorages(place, name)
	if err != nil {
		return nil, err
	}
	for _, s := range storages {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, common.NewError(common.NotFound, "storage "+name+" not found")
}

// RemoveStorage deletes a storage
func (c *Connection) RemoveStorage(name, place string) error {
	_, err := c.call(&common.Request{RemoveStorage: &common.RemoveStorageRequest{Name: name, Place: place}}, 0)
	return err
}

// ImportStorage unpacks tarball into a new storage
func (c *Connection) ImportStorage(name, tarball string, opts ArchiveOptions) (*Storage, error) {
	req := &common.Request{ImportStorage: &common.ImportStorageRequest{
		Name:         name,
		Tarball:      tarball,
		Place:        opts.Place,
		PrivateValue: opts.PrivateValue,
		Compress:     opts.Compress,
	}}
	if _, err := c.call(req, 0); err != nil {
		return nil, err
	}
	return c.storage(opts.Place, &common.StorageDescription{Name: name, PrivateValue: opts.PrivateValue}), nil
}

// ExportStorage packs a storage into tarball
func (c *Connection) ExportStorage(name, tarball string, opts ArchiveOptions) error {
	req := &common.Request{ExportStorage: &common.ExportStorageRequest{
		Name:     name,
		Tarball:  tarball,
		Place:    opts.Place,
		Compress: opts.Compress,
	}}
	_, err := c.call(req, 0)
	return err
}

func (c *Connection) storage(place string, desc *common.StorageDescription) *Storage {
	s := &Storage{name: desc.Name, place: place, conn: c}
	s.snapshot.Store(storageSnapshot(place, desc))
	return s
}

// --------------------------------------------------------------------------
// Meta Storage Operations (Connection)
// --------------------------------------------------------------------------

// CreateMetaStorage creates a meta storage, a quota-limited directory grouping
// layers and storages named "<meta>/<name>"
func (c *Connection) CreateMetaStorage(name string, opts MetaStorageOptions) (*MetaStorage, error) {
	if _, err := c.call(&common.Request{CreateMetaStorage: metaStorageRequest(name, opts)}, 0); err != nil {
		return nil, err
	}
	return c.FindMetaStorage(name, opts.Place)
}

// FindMetaStorage returns the meta storage name in place
func (c *Connection) FindMetaStorage(name, place string) (*MetaStorage, error) {
	metas, err := c.ListMetaStorages(place, name)
	if err != nil {
		return nil, err
	}
	for _, m := range metas {
		if m.Name() == name {
			return m, nil
		}
	}
	return nil, common.NewError(common.NotFound, "meta storage "+name+" not found")
}

// ListMetaStorages lists the meta storages of place matching mask ("" for all)
func (c *Connection) ListMetaStorages(place, mask string) ([]*MetaStorage, error) {
	list, err := c.listStorage(place, mask)
	if err != nil {
		return nil, err
	}
	metas := make([]*MetaStorage, 0, len(list.MetaStorages))
	for _, desc := range list.MetaStorages {
		metas = append(metas, c.metaStorage(place, desc))
	}
	return metas, nil
}

// ResizeMetaStorage changes the limits of a meta storage
func (c *Connection) ResizeMetaStorage(name string, opts MetaStorageOptions) error {
	_, err := c.call(&common.Request{ResizeMetaStorage: metaStorageRequest(name, opts)}, 0)
	return err
}

// RemoveMetaStorage deletes an empty meta storage
func (c *Connection) RemoveMetaStorage(name, place string) error {
	_, err := c.call(&common.Request{RemoveMetaStorage: &common.MetaStorageRequest{Name: name, Place: place}}, 0)
	return err
}

func metaStorageRequest(name string, opts MetaStorageOptions) *common.MetaStorageRequest {
	return &common.MetaStorageRequest{
		Name:         name,
		Place:        opts.Place,
		PrivateValue: opts.PrivateValue,
		SpaceLimit:   opts.SpaceLimit,
		InodeLimit:   opts.InodeLimit,
	}
}

func (c *Connection) metaStorage(place string, desc *common.MetaStorageDescription) *MetaStorage {
	m := &MetaStorage{name: desc.Name, place: place, conn: c}
	m.snapshot.Store(metaStorageSnapshot(place, desc))
	return m
}

// --------------------------------------------------------------------------
// Storage Proxy
// --------------------------------------------------------------------------

// Storage is a handle of a daemon storage with a cached record
type Storage struct {
	name     string
	place    string
	conn     *Connection
	snapshot atomic.Pointer[StorageSnapshot]
}

func (s *Storage) Name() string {
	return s.name
}

func (s *Storage) Place() string {
	return s.place
}

func (s *Storage) String() string {
	return "Storage `" + s.name + "`"
}

// Equal reports whether both handles name the same storage in the same place
func (s *Storage) Equal(other *Storage) bool {
	return other != nil && s.name == other.name && s.place == other.place
}

// Snapshot returns the cached record. The caller must not modify it.
func (s *Storage) Snapshot() *StorageSnapshot {
	return s.snapshot.Load()
}

// Update re-reads the record from the daemon and replaces the cache
func (s *Storage) Update() error {
	found, err := s.conn.FindStorage(s.name, s.place)
	if err != nil {
		return err
	}
	s.snapshot.Store(found.Snapshot())
	return nil
}

func (s *Storage) Remove() error {
	return s.conn.RemoveStorage(s.name, s.place)
}

// Import unpacks tarball into the storage of this handle, which must not exist
func (s *Storage) Import(tarball string, opts ArchiveOptions) error {
	opts.Place = s.place
	_, err := s.conn.ImportStorage(s.name, tarball, opts)
	return err
}

func (s *Storage) Export(tarball, compress string) error {
	return s.conn.ExportStorage(s.name, tarball, ArchiveOptions{Place: s.place, Compress: compress})
}

// --------------------------------------------------------------------------
// Meta Storage Proxy
// --------------------------------------------------------------------------

// MetaStorage is a handle of a daemon meta storage with a cached record
type MetaStorage struct {
	name     string
	place    string
	conn     *Connection
	snapshot atomic.Pointer[MetaStorageSnapshot]
}

func (m *MetaStorage) Name() string {
	return m.name
}

func (m *MetaStorage) Place() string {
	return m.place
}

func (m *MetaStorage) String() string {
	return "MetaStorage `" + m.name + "`"
}

// Equal reports whether both handles name the same meta storage in the same place
func (m *MetaStorage) Equal(other *MetaStorage) bool {
	return other != nil && m.name == other.name && m.place == other.place
}

// Snapshot returns the cached record. The caller must not modify it.
func (m *MetaStorage) Snapshot() *MetaStorageSnapshot {
	return m.snapshot.Load()
}

// Update re-reads the record from the daemon and replaces the cache
func (m *MetaStorage) Update() error {
	found, err := m.conn.FindMetaStorage(m.name, m.place)
	if err != nil {
		return err
	}
	m.snapshot.Store(found.Snapshot())
	return nil
}

// Resize changes the limits; zero limits are left unchanged by the daemon
func (m *MetaStorage) Resize(spaceLimit, inodeLimit uint64) error {
	return m.conn.ResizeMetaStorage(m.name, MetaStorageOptions{Place: m.place, SpaceLimit: spaceLimit, InodeLimit: inodeLimit})
}

func (m *MetaStorage) Remove() error {
	return m.conn.RemoveMetaStorage(m.name, m.place)
}

// Layers lists the layers inside this meta storage
func (m *MetaStorage) Layers() ([]*Layer, error) {
	return m.conn.ListLayers(m.place, m.name+"/*")
}

// Storages lists the storages inside this meta storage
func (m *MetaStorage) Storages() ([]*Storage, error) {
	return m.conn.ListStorages(m.place, m.name+"/*")
}
