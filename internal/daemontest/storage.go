package daemontest

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"os"
	"slices"
	"strings"
	"time"
)

// storeKey identifies a layer, storage or meta storage inside a place
type storeKey struct {
	place string
	name  string
}

type record struct {
	name    string
	private string
	created time.Time
}

type metaRecord struct {
	record
	spaceLimit uint64
	inodeLimit uint64
}

const (
	ownerUser     = "root"
	ownerGroup    = "root"
	usedPerRecord = 4096
)

func validStoreName(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, "/") &&
		!strings.HasSuffix(name, "/") &&
		!slices.Contains(strings.Split(name, "/"), "..") &&
		!strings.ContainsAny(name, "*?; \t\n")
}

// checkMetaLocked verifies that the meta storage of a "<meta>/<name>" name exists
func (d *Daemon) checkMetaLocked(place, name string) *common.Response {
	meta, _, nested := strings.Cut(name, "/")
	if !nested {
		return nil
	}
	if _, exists := d.metas[storeKey{place: place, name: meta}]; !exists {
		return fail(common.NotFound, "meta storage %s not found", meta)
	}
	return nil
}

// checkTarballLocked accepts archives exported earlier or files that exist on disk
func (d *Daemon) checkTarballLocked(tarball string) *common.Response {
	if !strings.HasPrefix(tarball, "/") {
		return fail(common.InvalidPath, "tarball path %s is not absolute", tarball)
	}
	if _, exported := d.archives[tarball]; exported {
		return nil
	}
	if _, err := os.Stat(tarball); err != nil {
		return fail(common.InvalidPath, "tarball %s not found", tarball)
	}
	return nil
}

func (d *Daemon) exportLocked(tarball string) *common.Response {
	if !strings.HasPrefix(tarball, "/") {
		return fail(common.InvalidPath, "tarball path %s is not absolute", tarball)
	}
	d.archives[tarball] = struct{}{}
	return ok()
}

func lastUsage(r *record) uint64 {
	return uint64(time.Since(r.created).Seconds())
}

func sortedKeys[V any](m map[storeKey]V, place, mask string) []storeKey {
	keys := make([]storeKey, 0, len(m))
	for key := range m {
		if key.place == place && matchMask(mask, key.name) {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, func(a, b storeKey) int { return strings.Compare(a.name, b.name) })
	return keys
}

// --------------------------------------------------------------------------
// Layer Requests
// --------------------------------------------------------------------------

func (d *Daemon) importLayer(req *common.ImportLayerRequest) *common.Response {
	if !validStoreName(req.Layer) {
		return fail(common.InvalidValue, "invalid layer name %q", req.Layer)
	}
	if resp := d.checkTarballLocked(req.Tarball); resp != nil {
		return resp
	}
	if resp := d.checkMetaLocked(req.Place, req.Layer); resp != nil {
		return resp
	}

	key := storeKey{place: req.Place, name: req.Layer}
	existing, exists := d.layers[key]
	if exists && !req.Merge {
		return fail(common.LayerAlreadyExists, "layer %s already exists", req.Layer)
	}
	if exists {
		if req.PrivateValue != "" {
			existing.private = req.PrivateValue
		}
		return ok()
	}

	d.layers[key] = &record{name: req.Layer, private: req.PrivateValue, created: time.Now()}
	return ok()
}

func (d *Daemon) lookupLayerLocked(place, name string) (*record, *common.Response) {
	l, exists := d.layers[storeKey{place: place, name: name}]
	if !exists {
		return nil, fail(common.LayerNotFound, "layer %s not found", name)
	}
	return l, nil
}

func (d *Daemon) removeLayer(req *common.RemoveLayerRequest) *common.Response {
	if _, resp := d.lookupLayerLocked(req.Place, req.Layer); resp != nil {
		return resp
	}
	for _, v := range d.volumes {
		if v.props["place"] == req.Place && slices.Contains(strings.Split(v.props["layers"], ";"), req.Layer) {
			return fail(common.Busy, "layer %s is used by volume %s", req.Layer, v.path)
		}
	}
	delete(d.layers, storeKey{place: req.Place, name: req.Layer})
	return ok()
}

func (d *Daemon) listLayers(req *common.ListLayersRequest) *common.Response {
	list := &common.ListLayersResponse{}
	for _, key := range sortedKeys(d.layers, req.Place, req.Mask) {
		l := d.layers[key]
		list.Names = append(list.Names, l.name)
		list.Layers = append(list.Layers, &common.LayerDescription{
			Name:         l.name,
			OwnerUser:    ownerUser,
			OwnerGroup:   ownerGroup,
			LastUsage:    lastUsage(l),
			PrivateValue: l.private,
		})
	}
	return &common.Response{Layers: list}
}

func (d *Daemon) exportLayer(req *common.ExportLayerRequest) *common.Response {
	if req.Volume != "" {
		if _, resp := d.lookupVolumeLocked(req.Volume); resp != nil {
			return resp
		}
	} else if _, resp := d.lookupLayerLocked(req.Place, req.Layer); resp != nil {
		return resp
	}
	return d.exportLocked(req.Tarball)
}

func (d *Daemon) getLayerPrivate(req *common.GetLayerPrivateRequest) *common.Response {
	l, resp := d.lookupLayerLocked(req.Place, req.Layer)
	if resp != nil {
		return resp
	}
	return &common.Response{LayerPrivate: &common.GetLayerPrivateResponse{PrivateValue: l.private}}
}

func (d *Daemon) setLayerPrivate(req *common.SetLayerPrivateRequest) *common.Response {
	l, resp := d.lookupLayerLocked(req.Place, req.Layer)
	if resp != nil {
		return resp
	}
	l.private = req.PrivateValue
	return ok()
}

// --------------------------------------------------------------------------
// Storage Requests
// --------------------------------------------------------------------------

func (d *Daemon) listStorage(req *common.ListStorageRequest) *common.Response {
	list := &common.ListStorageResponse{}
	for _, key := range sortedKeys(d.storages, req.Place, req.Mask) {
		s := d.storages[key]
		list.Storages = append(list.Storages, &common.StorageDescription{
			Name:         s.name,
			OwnerUser:    ownerUser,
			OwnerGroup:   ownerGroup,
			LastUsage:    lastUsage(s),
			PrivateValue: s.private,
		})
	}
	for _, key := range sortedKeys(d.metas, req.Place, req.Mask) {
		list.MetaStorages = append(list.MetaStorages, d.describeMetaLocked(d.metas[key], req.Place))
	}
	return &common.Response{StorageList: list}
}

func (d *Daemon) lookupStorageLocked(place, name string) (*record, *common.Response) {
	s, exists := d.storages[storeKey{place: place, name: name}]
	if !exists {
		return nil, fail(common.NotFound, "storage %s not found", name)
	}
	return s, nil
}

func (d *Daemon) removeStorage(req *common.RemoveStorageRequest) *common.Response {
	if _, resp := d.lookupStorageLocked(req.Place, req.Name); resp != nil {
		return resp
	}
	for _, v := range d.volumes {
		if v.props["place"] == req.Place && v.props["storage"] == req.Name {
			return fail(common.Busy, "storage %s is used by volume %s", req.Name, v.path)
		}
	}
	delete(d.storages, storeKey{place: req.Place, name: req.Name})
	return ok()
}

func (d *Daemon) importStorage(req *common.ImportStorageRequest) *common.Response {
	if !validStoreName(req.Name) {
		return fail(common.InvalidValue, "invalid storage name %q", req.Name)
	}
	if resp := d.checkTarballLocked(req.Tarball); resp != nil {
		return resp
	}
	if resp := d.checkMetaLocked(req.Place, req.Name); resp != nil {
		return resp
	}
	key := storeKey{place: req.Place, name: req.Name}
	if _, exists := d.storages[key]; exists {
		return fail(common.VolumeAlreadyExists, "storage %s already exists", req.Name)
	}
	d.storages[key] = &record{name: req.Name, private: req.PrivateValue, created: time.Now()}
	return ok()
}

func (d *Daemon) exportStorage(req *common.ExportStorageRequest) *common.Response {
	if _, resp := d.lookupStorageLocked(req.Place, req.Name); resp != nil {
		return resp
	}
	return d.exportLocked(req.Tarball)
}

// --------------------------------------------------------------------------
// Meta Storage Requests
// --------------------------------------------------------------------------

// usedLocked counts the layers and storages inside a meta storage
func (d *Daemon) usedLocked(place, meta string) uint64 {
	var n uint64
	for key := range d.layers {
		if key.place == place && strings.HasPrefix(key.name, meta+"/") {
			n++
		}
	}
	for key := range d.storages {
		if key.place == place && strings.HasPrefix(key.name, meta+"/") {
			n++
		}
	}
	return n
}

func (d *Daemon) describeMetaLocked(m *metaRecord, place string) *common.MetaStorageDescription {
	inodes := d.usedLocked(place, m.name)
	space := inodes * usedPerRecord
	desc := &common.MetaStorageDescription{
		Name:         m.name,
		PrivateValue: m.private,
		LastUsage:    lastUsage(&m.record),
		SpaceLimit:   m.spaceLimit,
		InodeLimit:   m.inodeLimit,
		SpaceUsed:    space,
		InodeUsed:    inodes,
	}
	if m.spaceLimit > space {
		desc.SpaceAvailable = m.spaceLimit - space
	}
	if m.inodeLimit > inodes {
		desc.InodeAvailable = m.inodeLimit - inodes
	}
	return desc
}

func (d *Daemon) createMetaStorage(req *common.MetaStorageRequest) *common.Response {
	if !validStoreName(req.Name) || strings.Contains(req.Name, "/") {
		return fail(common.InvalidValue, "invalid meta storage name %q", req.Name)
	}
	key := storeKey{place: req.Place, name: req.Name}
	if _, exists := d.metas[key]; exists {
		return fail(common.VolumeAlreadyExists, "meta storage %s already exists", req.Name)
	}
	d.metas[key] = &metaRecord{
		record:     record{name: req.Name, private: req.PrivateValue, created: time.Now()},
		spaceLimit: req.SpaceLimit,
		inodeLimit: req.InodeLimit,
	}
	return ok()
}

func (d *Daemon) lookupMetaLocked(place, name string) (*metaRecord, *common.Response) {
	m, exists := d.metas[storeKey{place: place, name: name}]
	if !exists {
		return nil, fail(common.NotFound, "meta storage %s not found", name)
	}
	return m, nil
}

func (d *Daemon) resizeMetaStorage(req *common.MetaStorageRequest) *common.Response {
	m, resp := d.lookupMetaLocked(req.Place, req.Name)
	if resp != nil {
		return resp
	}
	if req.SpaceLimit != 0 {
		m.spaceLimit = req.SpaceLimit
	}
	if req.InodeLimit != 0 {
		m.inodeLimit = req.InodeLimit
	}
	if req.PrivateValue != "" {
		m.private = req.PrivateValue
	}
	return ok()
}

func (d *Daemon) removeMetaStorage(req *common.MetaStorageRequest) *common.Response {
	if _, resp := d.lookupMetaLocked(req.Place, req.Name); resp != nil {
		return resp
	}
	if n := d.usedLocked(req.Place, req.Name); n > 0 {
		return fail(common.Busy, "meta storage %s is not empty (%d entries)", req.Name, n)
	}
	delete(d.metas, storeKey{place: req.Place, name: req.Name})
	return ok()
}
