package daemontest

import (
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/ValentinKolb/goporto/rpc/serializer"
	"github.com/ValentinKolb/goporto/rpc/server"
	"github.com/ValentinKolb/goporto/rpc/transport/unix"
	"github.com/lni/dragonboat/v4/logger"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var Logger = logger.GetLogger("daemontest")

const (
	// DefaultTag and DefaultRevision are reported by Version
	DefaultTag      = "v5.3.30"
	DefaultRevision = "daemontest"

	maxEvents = 4096
)

// event is one recorded state change
type event struct {
	name  string
	state string
	when  uint64
}

// Daemon is an in-memory container daemon. It implements server.IRPCServerAdapter.
type Daemon struct {
	mu         sync.Mutex
	containers map[string]*container
	volumes    map[string]*volume
	layers     map[storeKey]*record
	storages   map[storeKey]*record
	metas      map[storeKey]*metaRecord
	archives   map[string]struct{}

	events   []event
	lastWhen uint64
	changed  chan struct{} // closed and replaced on every state change
	nextPid  uint32
	nextVol  int

	closed    chan struct{}
	closeOnce sync.Once
	srv       *server.RPCServer

	Tag      string
	Revision string
}

// New creates an empty daemon with the root container "/"
func New() *Daemon {
	d := &Daemon{
		containers: make(map[string]*container),
		volumes:    make(map[string]*volume),
		layers:     make(map[storeKey]*record),
		storages:   make(map[storeKey]*record),
		metas:      make(map[storeKey]*metaRecord),
		archives:   make(map[string]struct{}),
		changed:    make(chan struct{}),
		closed:     make(chan struct{}),
		nextPid:    1000,
		Tag:        DefaultTag,
		Revision:   DefaultRevision,
	}
	d.containers["/"] = &container{name: "/", state: stateMeta, props: map[string]string{}}
	return d
}

// Serve answers requests on a unix socket at endpoint until Close
func (d *Daemon) Serve(endpoint string, s serializer.IRPCSerializer) error {
	srv := server.NewRPCServer(
		common.ServerConfig{Endpoint: endpoint, TimeoutSecond: 5, LogLevel: "warn"},
		unix.NewUnixDefaultServerTransport(),
		s,
		d,
	)
	if err := srv.Start(); err != nil {
		return err
	}
	d.mu.Lock()
	d.srv = srv
	d.mu.Unlock()
	return nil
}

// Close releases blocked waits and stops serving
func (d *Daemon) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })

	d.mu.Lock()
	srv := d.srv
	d.srv = nil
	d.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Close()
}

// Start serves a new daemon on a socket in a fresh temporary directory and returns
// a client configuration for it. The daemon is closed by t.Cleanup.
func Start(t testing.TB, s serializer.IRPCSerializer) (*Daemon, common.ClientConfig) {
	t.Helper()

	// unix socket paths are short, so t.TempDir() with long test names does not fit
	dir, err := os.MkdirTemp("", "goporto")
	if err != nil {
		t.Fatalf("failed to create socket dir: %v", err)
	}
	endpoint := filepath.Join(dir, "portod.socket")

	d := New()
	if err := d.Serve(endpoint, s); err != nil {
		_ = os.RemoveAll(dir)
		t.Fatalf("failed to start daemon: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
		_ = os.RemoveAll(dir)
	})

	config := common.DefaultClientConfig()
	config.SocketPath = endpoint
	config.TimeoutSecond = 5
	config.ConnectRetryMs = 10
	return d, config
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IRPCServerAdapter)
// --------------------------------------------------------------------------

func (d *Daemon) Handle(req *common.Request) *common.Response {
	// wait blocks and manages the lock itself
	if req.Wait != nil {
		return d.wait(req.Wait)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	// containers
	case req.Create != nil:
		return d.create(req.Create.Name, false)
	case req.CreateWeak != nil:
		return d.create(req.CreateWeak.Name, true)
	case req.Destroy != nil:
		return d.destroy(req.Destroy.Name)
	case req.List != nil:
		return d.list(req.List.Mask)
	case req.GetProperty != nil:
		return d.getProperty(req.GetProperty.Name, req.GetProperty.Property)
	case req.SetProperty != nil:
		return d.setProperty(req.SetProperty.Name, req.SetProperty.Property, req.SetProperty.Value)
	case req.Get != nil:
		return d.get(req.Get.Names, req.Get.Variables)
	case req.Start != nil:
		return d.start(req.Start.Name)
	case req.Stop != nil:
		return d.stop(req.Stop.Name)
	case req.Kill != nil:
		return d.kill(req.Kill.Name, req.Kill.Sig)
	case req.Pause != nil:
		return d.pause(req.Pause.Name)
	case req.Resume != nil:
		return d.resume(req.Resume.Name)
	case req.PropertyList != nil:
		return &common.Response{PropertyList: &common.PropertyListResponse{List: describe(containerProperties)}}
	case req.Version != nil:
		return &common.Response{Version: &common.VersionResponse{Tag: d.Tag, Revision: d.Revision}}
	case req.ConvertPath != nil:
		return d.convertPath(req.ConvertPath)
	case req.LocateProcess != nil:
		return d.locateProcess(req.LocateProcess.Pid)

	// volumes
	case req.ListVolumeProperties != nil:
		return &common.Response{VolumePropertyList: &common.PropertyListResponse{List: describe(volumeProperties)}}
	case req.CreateVolume != nil:
		return d.createVolume(req.CreateVolume)
	case req.LinkVolume != nil:
		return d.linkVolume(req.LinkVolume)
	case req.UnlinkVolume != nil:
		return d.unlinkVolume(req.UnlinkVolume)
	case req.ListVolumes != nil:
		return d.listVolumes(req.ListVolumes)
	case req.TuneVolume != nil:
		return d.tuneVolume(req.TuneVolume)

	// layers and storages
	case req.ImportLayer != nil:
		return d.importLayer(req.ImportLayer)
	case req.RemoveLayer != nil:
		return d.removeLayer(req.RemoveLayer)
	case req.ListLayers != nil:
		return d.listLayers(req.ListLayers)
	case req.ExportLayer != nil:
		return d.exportLayer(req.ExportLayer)
	case req.GetLayerPrivate != nil:
		return d.getLayerPrivate(req.GetLayerPrivate)
	case req.SetLayerPrivate != nil:
		return d.setLayerPrivate(req.SetLayerPrivate)
	case req.ListStorage != nil:
		return d.listStorage(req.ListStorage)
	case req.RemoveStorage != nil:
		return d.removeStorage(req.RemoveStorage)
	case req.ImportStorage != nil:
		return d.importStorage(req.ImportStorage)
	case req.ExportStorage != nil:
		return d.exportStorage(req.ExportStorage)
	case req.CreateMetaStorage != nil:
		return d.createMetaStorage(req.CreateMetaStorage)
	case req.ResizeMetaStorage != nil:
		return d.resizeMetaStorage(req.ResizeMetaStorage)
	case req.RemoveMetaStorage != nil:
		return d.removeMetaStorage(req.RemoveMetaStorage)

	default:
		return fail(common.InvalidMethod, "unsupported request %s", req.Kind())
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func fail(code common.ErrorCode, format string, args ...interface{}) *common.Response {
	return common.NewErrorResponse(code, fmt.Sprintf(format, args...))
}

func ok() *common.Response {
	return &common.Response{}
}

// recordLocked stamps a state change with a strictly increasing timestamp in
// microseconds and wakes up all waiters. Must be called with d.mu held.
func (d *Daemon) recordLocked(c *container, state string) {
	when := uint64(time.Now().UnixMicro())
	if when <= d.lastWhen {
		when = d.lastWhen + 1
	}
	d.lastWhen = when

	c.state = state
	c.changed = when

	d.events = append(d.events, event{name: c.name, state: state, when: when})
	if len(d.events) > maxEvents {
		d.events = d.events[len(d.events)-maxEvents:]
	}

	close(d.changed)
	d.changed = make(chan struct{})
	Logger.Debugf("%s -> %s", c.name, state)
}
