package client

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"maps"
	"slices"
	"sync/atomic"
)

// UnlinkAll as container name unlinks a volume from every container
const UnlinkAll = "***"

// LinkOptions tunes LinkVolume
type LinkOptions struct {
	// Target is the mount point inside the container ("" keeps the volume path)
	Target   string
	ReadOnly bool
	// Required makes the container fail to start without the volume
	Required bool
}

// VolumeSnapshot is the cached record of a volume. It is never modified after
// creation; Update replaces it as a whole.
type VolumeSnapshot struct {
	Path       string
	Properties map[string]string
	Containers []string
}

func volumeSnapshot(desc *common.VolumeDescription) *VolumeSnapshot {
	s := &VolumeSnapshot{
		Path:       desc.Path,
		Properties: make(map[string]string, len(desc.Properties)),
		Containers: slices.Clone(desc.Containers),
	}
	for _, p := range desc.Properties {
		s.Properties[p.Name] = p.Value
	}
	return s
}

// --------------------------------------------------------------------------
// Volume Operations (Connection)
// --------------------------------------------------------------------------

// CreateVolume creates a volume. An empty path lets the daemon choose one.
func (c *Connection) CreateVolume(path string, props map[string]string) (*Volume, error) {
	req := &common.Request{CreateVolume: &common.CreateVolumeRequest{Path: path, Properties: volumeProperties(props)}}
	resp, err := c.call(req, 0)
	if err != nil {
		return nil, err
	}
	if resp.Volume == nil {
		return nil, common.NewError(common.InvalidData, "createVolume response without volume")
	}
	return c.volume(resp.Volume), nil
}

// FindVolume returns the volume at path
func (c *Connection) FindVolume(path string) (*Volume, error) {
	volumes, err := c.ListVolumes(path, "")
	if err != nil {
		return nil, err
	}
	for _, v := range volumes {
		if v.Path() == path {
			return v, nil
		}
	}
	return nil, common.NewError(common.VolumeNotFound, "volume "+path+" not found")
}

// ListVolumes lists volumes, optionally restricted to one path or to the volumes
// linked to one container
func (c *Connection) ListVolumes(path, container string) ([]*Volume, error) {
	req := &common.Request{ListVolumes: &common.ListVolumesRequest{Path: path, Container: container}}
	resp, err := c.call(req, 0)
	if err != nil {
		return nil, err
	}
	if resp.VolumeList == nil {
		return nil, nil
	}
	volumes := make([]*Volume, 0, len(resp.VolumeList.Volumes))
	for _, desc := range resp.VolumeList.Volumes {
		volumes = append(volumes, c.volume(desc))
	}
	return volumes, nil
}

// LinkVolume makes the volume at path available to container
func (c *Connection) LinkVolume(path, container string, opts LinkOptions) error {
	req := &common.Request{LinkVolume: &common.LinkVolumeRequest{
		Path:      path,
		Container: container,
		Target:    opts.Target,
		Required:  opts.Required,
		ReadOnly:  opts.ReadOnly,
	}}
	_, err := c.call(req, 0)
	return err
}

// UnlinkVolume removes the link of container ("" for the caller's container,
// UnlinkAll for all). The daemon deletes a volume once its last link is gone.
func (c *Connection) UnlinkVolume(path, container string) error {
	req := &common.Request{UnlinkVolume: &common.UnlinkVolumeRequest{Path: path, Container: container}}
	_, err := c.call(req, 0)
	return err
}

// TuneVolume changes properties of an existing volume
func (c *Connection) TuneVolume(path string, props map[string]string) error {
	req := &common.Request{TuneVolume: &common.TuneVolumeRequest{Path: path, Properties: volumeProperties(props)}}
	_, err := c.call(req, 0)
	return err
}

// DestroyVolume unlinks the volume from all containers, which deletes it
func (c *Connection) DestroyVolume(path string) error {
	return c.UnlinkVolume(path, UnlinkAll)
}

// ExportLayer packs the upper layer of the volume at path into tarball
func (c *Connection) ExportLayer(volume, tarball, compress string) error {
	req := &common.Request{ExportLayer: &common.ExportLayerRequest{Volume: volume, Tarball: tarball, Compress: compress}}
	_, err := c.call(req, 0)
	return err
}

func (c *Connection) volume(desc *common.VolumeDescription) *Volume {
	v := &Volume{path: desc.Path, conn: c}
	v.snapshot.Store(volumeSnapshot(desc))
	return v
}

// --------------------------------------------------------------------------
// Volume Proxy
// --------------------------------------------------------------------------

// Volume is a handle of a daemon volume with a cached record
type Volume struct {
	path     string
	conn     *Connection
	snapshot atomic.Pointer[VolumeSnapshot]
}

func (v *Volume) Path() string {
	return v.path
}

// Place returns the storage place of the volume ("" for the default place).
// Like the other cached accessors it loads the record on its own, so reads of
// several fields that must agree go through one Snapshot.
func (v *Volume) Place() string {
	return v.Snapshot().Properties["place"]
}

func (v *Volume) String() string {
	return "Volume `" + v.path + "`"
}

// Equal reports whether both handles name the same volume
func (v *Volume) Equal(other *Volume) bool {
	return other != nil && v.path == other.path
}

// Snapshot returns the cached record. The caller must not modify it.
// A snapshot never changes, Update swaps in a new one.
func (v *Volume) Snapshot() *VolumeSnapshot {
	return v.snapshot.Load()
}

// Update re-reads the record from the daemon and replaces the cache
func (v *Volume) Update() error {
	req := &common.Request{ListVolumes: &common.ListVolumesRequest{Path: v.path}}
	resp, err := v.conn.call(req, 0)
	if err != nil {
		return err
	}
	if resp.VolumeList != nil {
		for _, desc := range resp.VolumeList.Volumes {
			if desc.Path == v.path {
				v.snapshot.Store(volumeSnapshot(desc))
				return nil
			}
		}
	}
	return common.NewError(common.VolumeNotFound, "volume "+v.path+" not found")
}

// Properties returns a copy of the cached properties. An Update running at the
// same time may land between this and a later accessor call, use Snapshot to
// read properties and containers together.
func (v *Volume) Properties() map[string]string {
	return maps.Clone(v.Snapshot().Properties)
}

// GetProperty returns one cached property. Two calls may see different
// records if Update runs in between, read several properties from one Snapshot.
func (v *Volume) GetProperty(name string) (string, bool) {
	value, ok := v.Snapshot().Properties[name]
	return value, ok
}

// Containers returns handles of the containers the volume was linked to at the last Update.
// Pair it with properties through Snapshot().Containers.
func (v *Volume) Containers() []*Container {
	names := v.Snapshot().Containers
	containers := make([]*Container, 0, len(names))
	for _, name := range names {
		containers = append(containers, v.conn.container(name))
	}
	return containers
}

func (v *Volume) Link(container string, opts LinkOptions) error {
	return v.conn.LinkVolume(v.path, container, opts)
}

func (v *Volume) Unlink(container string) error {
	return v.conn.UnlinkVolume(v.path, container)
}

func (v *Volume) Tune(props map[string]string) error {
	return v.conn.TuneVolume(v.path, props)
}

func (v *Volume) Export(tarball, compress string) error {
	return v.conn.ExportLayer(v.path, tarball, compress)
}

func (v *Volume) Destroy() error {
	return v.conn.DestroyVolume(v.path)
}
