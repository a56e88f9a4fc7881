package client

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

func TestLayerLifecycle(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])
	tarball := writeTarball(t, "base.tar")

	layer, err := conn.ImportLayer("base", tarball, ArchiveOptions{PrivateValue: "v1"})
	require.NoError(t, err)
	assert.Equal(t, "Layer `base`", layer.String())

	_, err = conn.ImportLayer("base", tarball, ArchiveOptions{})
	require.ErrorIs(t, err, common.ErrLayerAlreadyExists)
	require.NoError(t, layer.Merge(tarball, ""))

	_, err = conn.ImportLayer("broken", "/no/such/archive.tar", ArchiveOptions{})
	require.ErrorIs(t, err, common.ErrInvalidPath)

	private, err := layer.GetPrivate()
	require.NoError(t, err)
	assert.Equal(t, "v1", private)
	require.NoError(t, layer.SetPrivate("v2"))
	require.NoError(t, layer.Update())
	assert.Equal(t, "v2", layer.Snapshot().PrivateValue)
	assert.Equal(t, "root", layer.Snapshot().OwnerUser)

	found, err := conn.FindLayer("base", "")
	require.NoError(t, err)
	assert.True(t, layer.Equal(found))

	// a layer in use by a volume cannot be removed
	v, err := conn.CreateVolume("", map[string]string{"layers": "base"})
	require.NoError(t, err)
	require.ErrorIs(t, layer.Remove(), common.ErrBusy)
	require.NoError(t, v.Destroy())

	exported := filepath.Join(t.TempDir(), "base-copy.tar")
	require.NoError(t, layer.Export(exported, ""))

	require.NoError(t, layer.Remove())
	_, err = conn.FindLayer("base", "")
	require.ErrorIs(t, err, common.ErrLayerNotFound)
	require.ErrorIs(t, layer.Remove(), common.ErrLayerNotFound)
}

func TestLayerPlaces(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["JSON"])
	tarball := writeTarball(t, "l.tar")

	_, err := conn.ImportLayer("same", tarball, ArchiveOptions{Place: "/place/a"})
	require.NoError(t, err)
	_, err = conn.ImportLayer("same", tarball, ArchiveOptions{Place: "/place/b"})
	require.NoError(t, err)

	layers, err := conn.ListLayers("/place/a", "")
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, "/place/a", layers[0].Place())

	none, err := conn.ListLayers("", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStorageLifecycle(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])
	tarball := writeTarball(t, "data.tar")

	s, err := conn.ImportStorage("data", tarball, ArchiveOptions{PrivateValue: "p"})
	require.NoError(t, err)
	assert.Equal(t, "Storage `data`", s.String())
	_, err = conn.ImportStorage("data", tarball, ArchiveOptions{})
	require.ErrorIs(t, err, common.ErrVolumeAlreadyExists)

	require.NoError(t, s.Update())
	assert.Equal(t, "p", s.Snapshot().PrivateValue)

	exported := filepath.Join(t.TempDir(), "data-copy.tar")
	require.NoError(t, s.Export(exported, "tar"))

	v, err := conn.CreateVolume("", map[string]string{"storage": "data"})
	require.NoError(t, err)
	require.ErrorIs(t, s.Remove(), common.ErrBusy)
	require.NoError(t, v.Destroy())

	require.NoError(t, s.Remove())
	_, err = conn.FindStorage("data", "")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.ErrorIs(t, s.Remove(), common.ErrNotFound)

	// the exported archive restores the storage
	require.NoError(t, s.Import(exported, ArchiveOptions{}))
	require.NoError(t, s.Update())
}

func TestMetaStorage(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])
	tarball := writeTarball(t, "m.tar")

	_, err := conn.ImportLayer("team/base", tarball, ArchiveOptions{})
	require.ErrorIs(t, err, common.ErrNotFound, "meta storage must exist first")

	meta, err := conn.CreateMetaStorage("team", MetaStorageOptions{SpaceLimit: 1 << 30, InodeLimit: 1000})
	require.NoError(t, err)
	assert.Equal(t, "MetaStorage `team`", meta.String())
	assert.EqualValues(t, 1<<30, meta.Snapshot().SpaceLimit)
	assert.EqualValues(t, 1000, meta.Snapshot().InodeAvailable)

	_, err = conn.CreateMetaStorage("team", MetaStorageOptions{})
	require.ErrorIs(t, err, common.ErrVolumeAlreadyExists)
	_, err = conn.CreateMetaStorage("a/b", MetaStorageOptions{})
	require.ErrorIs(t, err, common.ErrInvalidValue)

	_, err = conn.ImportLayer("team/base", tarball, ArchiveOptions{})
	require.NoError(t, err)
	_, err = conn.ImportStorage("team/home", tarball, ArchiveOptions{})
	require.NoError(t, err)

	layers, err := meta.Layers()
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, "team/base", layers[0].Name())

	storages, err := meta.Storages()
	require.NoError(t, err)
	require.Len(t, storages, 1)
	assert.Equal(t, "team/home", storages[0].Name())

	require.NoError(t, meta.Update())
	assert.EqualValues(t, 2, meta.Snapshot().InodeUsed)
	assert.EqualValues(t, 998, meta.Snapshot().InodeAvailable)

	require.NoError(t, meta.Resize(0, 5000))
	require.NoError(t, meta.Update())
	assert.EqualValues(t, 1<<30, meta.Snapshot().SpaceLimit, "zero limits stay unchanged")
	assert.EqualValues(t, 5000, meta.Snapshot().InodeLimit)

	require.ErrorIs(t, meta.Remove(), common.ErrBusy)
	require.NoError(t, conn.RemoveLayer("team/base", ""))
	require.NoError(t, conn.RemoveStorage("team/home", ""))
	require.NoError(t, meta.Remove())

	_, err = conn.FindMetaStorage("team", "")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.ErrorIs(t, meta.Remove(), common.ErrNotFound)
}
