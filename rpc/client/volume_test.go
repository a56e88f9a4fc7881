package client

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func TestVolumeLifecycle(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			_, conn := newTestConnection(t, factory)
			_, err := conn.Create("app")
			require.NoError(t, err)

			v, err := conn.CreateVolume("/data/app", map[string]string{"backend": "plain", "space_limit": "1024"})
			require.NoError(t, err)
			assert.Equal(t, "/data/app", v.Path())
			assert.Equal(t, "Volume `/data/app`", v.String())

			limit, ok := v.GetProperty("space_limit")
			assert.True(t, ok)
			assert.Equal(t, "1024", limit)

			_, err = conn.CreateVolume("/data/app", nil)
			require.ErrorIs(t, err, common.ErrVolumeAlreadyExists)

			require.NoError(t, v.Link("app", LinkOptions{Target: "/mnt", ReadOnly: true}))
			require.ErrorIs(t, v.Link("app", LinkOptions{}), common.ErrVolumeAlreadyLinked)
			require.NoError(t, v.Update())

			var linked []string
			for _, ct := range v.Containers() {
				linked = append(linked, ct.Name())
			}
			assert.Equal(t, []string{"/", "app"}, linked)

			appVolumes, err := conn.ListVolumes("", "app")
			require.NoError(t, err)
			require.Len(t, appVolumes, 1)
			assert.True(t, v.Equal(appVolumes[0]))

			require.NoError(t, v.Tune(map[string]string{"space_limit": "2048"}))
			require.ErrorIs(t, v.Tune(map[string]string{"backend": "tmpfs"}), common.ErrInvalidProperty)
			require.NoError(t, v.Update())
			limit, _ = v.GetProperty("space_limit")
			assert.Equal(t, "2048", limit)

			require.NoError(t, v.Unlink("app"))
			require.ErrorIs(t, v.Unlink("app"), common.ErrVolumeNotLinked)

			require.NoError(t, v.Destroy())
			_, err = conn.FindVolume("/data/app")
			require.ErrorIs(t, err, common.ErrVolumeNotFound)
			require.ErrorIs(t, v.Update(), common.ErrVolumeNotFound)
			require.ErrorIs(t, v.Destroy(), common.ErrVolumeNotFound)
			require.ErrorIs(t, v.Unlink("app"), common.ErrVolumeNotFound)
		})
	}
}

func TestVolumeAutoPath(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])

	v, err := conn.CreateVolume("", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, v.Path())
	assert.Equal(t, "plain", v.Properties()["backend"])

	_, err = conn.CreateVolume("", map[string]string{"colour": "blue"})
	require.ErrorIs(t, err, common.ErrInvalidProperty)

	_, err = conn.CreateVolume("", map[string]string{"layers": "missing"})
	require.ErrorIs(t, err, common.ErrLayerNotFound)
}

func TestVolumeDroppedWithLastContainer(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])
	_, err := conn.Create("owner")
	require.NoError(t, err)

	v, err := conn.CreateVolume("/data/owned", nil)
	require.NoError(t, err)
	require.NoError(t, v.Link("owner", LinkOptions{}))
	require.NoError(t, v.Unlink(""))

	// still linked to owner
	_, err = conn.FindVolume(v.Path())
	require.NoError(t, err)

	require.NoError(t, conn.Destroy("owner"))
	_, err = conn.FindVolume(v.Path())
	require.ErrorIs(t, err, common.ErrVolumeNotFound)
}

// TestVolumeSnapshotConsistency reads two fields of a volume while Update replaces
// them; a reader must never see one old and one new value
func TestVolumeSnapshotConsistency(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])
	v, err := conn.CreateVolume("/data/tuned", map[string]string{"space_limit": "0", "inode_limit": "0"})
	require.NoError(t, err)

	var (
		stop  atomic.Bool
		mixed atomic.Int32
		reads atomic.Int32
		wg    sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				snap := v.Snapshot()
				if snap.Properties["space_limit"] != snap.Properties["inode_limit"] {
					mixed.Add(1)
				}
				reads.Add(1)
			}
		}()
	}

	for i := 1; i <= 50; i++ {
		value := strconv.Itoa(i)
		require.NoError(t, conn.TuneVolume(v.Path(), map[string]string{"space_limit": value, "inode_limit": value}))
		require.NoError(t, v.Update())
	}
	stop.Store(true)
	wg.Wait()

	assert.Zero(t, mixed.Load(), "reader observed a half updated volume")
	assert.Positive(t, reads.Load())
	assert.Equal(t, "50", v.Properties()["space_limit"])
}

// TestVolumeHeldSnapshotIsStable checks that a held snapshot keeps its values
// while the single field accessors follow Update
func TestVolumeHeldSnapshotIsStable(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])
	v, err := conn.CreateVolume("/data/held", map[string]string{"space_limit": "1", "inode_limit": "1"})
	require.NoError(t, err)

	held := v.Snapshot()
	require.NoError(t, v.Tune(map[string]string{"space_limit": "2", "inode_limit": "2"}))
	require.NoError(t, v.Update())

	assert.Equal(t, "1", held.Properties["space_limit"])
	assert.Equal(t, "1", held.Properties["inode_limit"])
	limit, _ := v.GetProperty("space_limit")
	assert.Equal(t, "2", limit)
	assert.Equal(t, held.Properties["place"], v.Place())
}

func TestExportVolumeLayer(t *testing.T) {
	_, conn := newTestConnection(t, testSerializers["Protobuf"])
	v, err := conn.CreateVolume("/data/export", nil)
	require.NoError(t, err)

	tarball := filepath.Join(t.TempDir(), "upper.tar.gz")
	require.NoError(t, v.Export(tarball, "tar.gz"))

	// the export is importable as a layer
	layer, err := conn.ImportLayer("exported", tarball, ArchiveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "exported", layer.Name())

	require.ErrorIs(t, conn.ExportLayer("/data/none", tarball, ""), common.ErrVolumeNotFound)
	require.ErrorIs(t, v.Export("relative.tar", ""), common.ErrInvalidPath)
}

// writeTarball creates an archive file the daemon accepts for import
func writeTarball(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("not really a tarball"), 0o600))
	return path
}
