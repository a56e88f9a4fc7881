package client

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"sync/atomic"
)

// ArchiveOptions tunes imports and exports of layers and storages
type ArchiveOptions struct {
	Place        string
	PrivateValue string
	// Compress names the archive format (e.g. "tar.gz"); "" lets the daemon guess
	Compress string
}

// LayerSnapshot is the cached record of a layer
type LayerSnapshot struct {
	Name         string
	Place        string
	OwnerUser    string
	OwnerGroup   string
	LastUsage    uint64
	PrivateValue string
}

func layerSnapshot(place string, desc *common.LayerDescription) *LayerSnapshot {
	return &LayerSnapshot{
		Name:         desc.Name,
		Place:        place,
		OwnerUser:    desc.OwnerUser,
		OwnerGroup:   desc.OwnerGroup,
		LastUsage:    desc.LastUsage,
		PrivateValue: desc.PrivateValue,
	}
}

// --------------------------------------------------------------------------
// Layer Operations (Connection)
// --------------------------------------------------------------------------

// ImportLayer unpacks tarball into a new layer
func (c *Connection) ImportLayer(name, tarball string, opts ArchiveOptions) (*Layer, error) {
	if err := c.importLayer(name, tarball, false, opts); err != nil {
		return nil, err
	}
	return c.layer(opts.Place, &common.LayerDescription{Name: name, PrivateValue: opts.PrivateValue}), nil
}

// MergeLayer unpacks tarball on top of an existing layer
func (c *Connection) MergeLayer(name, tarball string, opts ArchiveOptions) error {
	return c.importLayer(name, tarball, true, opts)
}

func (c *Connection) importLayer(name, tarball string, merge bool, opts ArchiveOptions) error {
	req := &common.Request{ImportLayer: &common.ImportLayerRequest{
		Layer:        name,
		Tarball:      tarball,
		Merge:        merge,
		Place:        opts.Place,
		PrivateValue: opts.PrivateValue,
	}}
	_, err := c.call(req, 0)
	return err
}

// FindLayer returns the layer name in place
func (c *Connection) FindLayer(name, place string) (*Layer, error) {
	layers, err := c.ListLayers(place, name)
	if err != nil {
		return nil, err
	}
	for _, l := range layers {
		if l.Name() == name {
			return l, nil
		}
	}
	return nil, common.NewError(common.LayerNotFound, "layer "+name+" not found")
}

// ListLayers lists the layers of place matching mask ("" for all)
func (c *Connection) ListLayers(place, mask string) ([]*Layer, error) {
	resp, err := c.call(&common.Request{ListLayers: &common.ListLayersRequest{Place: place, Mask: mask}}, 0)
	if err != nil {
		return nil, err
	}
	if resp.Layers == nil {
		return nil, nil
	}

	// older daemons only send names
	if len(resp.Layers.Layers) == 0 {
		layers := make([]*Layer, 0, len(resp.Layers.Names))
		for _, name := range resp.Layers.Names {
			layers = append(layers, c.layer(place, &common.LayerDescription{Name: name}))
		}
		return layers, nil
	}

	layers := make([]*Layer, 0, len(resp.Layers.Layers))
	for _, desc := range resp.Layers.Layers {
		layers = append(layers, c.layer(place, desc))
	}
	return layers, nil
}

// RemoveLayer deletes a layer that no volume uses
func (c *Connection) RemoveLayer(name, place string) error {
	_, err := c.call(&common.Request{RemoveLayer: &common.RemoveLayerRequest{Layer: name, Place: place}}, 0)
	return err
}

// GetLayerPrivate returns the free-form private value of a layer
func (c *Connection) GetLayerPrivate(name, place string) (string, error) {
	resp, err := c.call(&common.Request{GetLayerPrivate: &common.GetLayerPrivateRequest{Layer: name, Place: place}}, 0)
	if err != nil {
		return "", err
	}
	if resp.LayerPrivate == nil {
		return "", nil
	}
	return resp.LayerPrivate.PrivateValue, nil
}

// SetLayerPrivate replaces the private value of a layer
func (c *Connection) SetLayerPrivate(name, place, value string) error {
	req := &common.Request{SetLayerPrivate: &common.SetLayerPrivateRequest{Layer: name, Place: place, PrivateValue: value}}
	_, err := c.call(req, 0)
	return err
}

func (c *Connection) layer(place string, desc *common.LayerDescription) *Layer {
	l := &Layer{name: desc.Name, place: place, conn: c}
	l.snapshot.Store(layerSnapshot(place, desc))
	return l
}

// --------------------------------------------------------------------------
// Layer Proxy
// --------------------------------------------------------------------------

// Layer is a handle of a daemon layer with a cached record
type Layer struct {
	name     string
	place    string
	conn     *Connection
	snapshot atomic.Pointer[LayerSnapshot]
}

func (l *Layer) Name() string {
	return l.name
}

func (l *Layer) Place() string {
	return l.place
}

func (l *Layer) String() string {
	return "Layer `" + l.name + "`"
}

// Equal reports whether both handles name the same layer in the same place
func (l *Layer) Equal(other *Layer) bool {
	return other != nil && l.name == other.name && l.place == other.place
}

// Snapshot returns the cached record. The caller must not modify it.
func (l *Layer) Snapshot() *LayerSnapshot {
	return l.snapshot.Load()
}

// Update re-reads the record from the daemon and replaces the cache
func (l *Layer) Update() error {
	found, err := l.conn.FindLayer(l.name, l.place)
	if err != nil {
		return err
	}
	l.snapshot.Store(found.Snapshot())
	return nil
}

func (l *Layer) Merge(tarball, privateValue string) error {
	return l.conn.MergeLayer(l.name, tarball, ArchiveOptions{Place: l.place, PrivateValue: privateValue})
}

func (l *Layer) Remove() error {
	return l.conn.RemoveLayer(l.name, l.place)
}

// Export packs the layer into tarball
func (l *Layer) Export(tarball, compress string) error {
	req := &common.Request{ExportLayer: &common.ExportLayerRequest{
		Layer:    l.name,
		Place:    l.place,
		Tarball:  tarball,
		Compress: compress,
	}}
	_, err := l.conn.call(req, 0)
	return err
}

func (l *Layer) GetPrivate() (string, error) {
	return l.conn.GetLayerPrivate(l.name, l.place)
}

func (l *Layer) SetPrivate(value string) error {
	return l.conn.SetLayerPrivate(l.name, l.place, value)
}
