package client

import (
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
	"strings"
	"time"
)

// WaitSlack is added to the local deadline of calls that make the daemon wait,
// so the client never gives up before the daemon answers
const WaitSlack = 5 * time.Second

// PropertyValue is one cell of a batched Get. Err is set when the daemon
// could not read this variable.
type PropertyValue struct {
	Value string
	Err   error
}

// --------------------------------------------------------------------------
// Container Operations (Connection)
// --------------------------------------------------------------------------

// Create creates a stopped container
func (c *Connection) Create(name string) (*Container, error) {
	if _, err := c.call(common.NewCreateRequest(name), 0); err != nil {
		return nil, err
	}
	return c.container(name), nil
}

// CreateWeak creates a container that the daemon destroys when this client disconnects
func (c *Connection) CreateWeak(name string) (*Container, error) {
	if _, err := c.call(common.NewCreateWeakRequest(name), 0); err != nil {
		return nil, err
	}
	return c.container(name), nil
}

// Run creates a container, sets props in key order and starts it.
// On failure the container is destroyed again.
func (c *Connection) Run(name string, props map[string]string) (*Container, error) {
	return c.run(name, props, false)
}

// RunWeak is Run with a weak container, which is left to the daemon on failure
func (c *Connection) RunWeak(name string, props map[string]string) (*Container, error) {
	return c.run(name, props, true)
}

func (c *Connection) run(name string, props map[string]string, weak bool) (*Container, error) {
	var (
		ct  *Container
		err error
	)
	if weak {
		ct, err = c.CreateWeak(name)
	} else {
		ct, err = c.Create(name)
	}
	if err != nil {
		return nil, err
	}

	err = func() error {
		for _, property := range sortedKeys(props) {
			if err := ct.SetProperty(property, props[property]); err != nil {
				return err
			}
		}
		return ct.Start()
	}()
	if err != nil {
		if !weak {
			if derr := ct.Destroy(); derr != nil {
				Logger.Warningf("Failed to destroy %s after failed run: %v", name, derr)
			}
		}
		return nil, err
	}
	return ct, nil
}

// Find returns a handle for an existing container
func (c *Connection) Find(name string) (*Container, error) {
	if _, err := c.GetProperty(name, "state"); err != nil {
		return nil, err
	}
	return c.container(name), nil
}

// Destroy destroys the container and all its children
func (c *Connection) Destroy(name string) error {
	_, err := c.call(common.NewDestroyRequest(name), 0)
	return err
}

// List returns the names of all containers matching mask ("" for all)
func (c *Connection) List(mask string) ([]string, error) {
	resp, err := c.call(common.NewListRequest(mask), 0)
	if err != nil {
		return nil, err
	}
	if resp.List == nil {
		return nil, nil
	}
	return resp.List.Names, nil
}

// ListContainers returns handles for all containers matching mask
func (c *Connection) ListContainers(mask string) ([]*Container, error) {
	names, err := c.List(mask)
	if err != nil {
		return nil, err
	}
	containers := make([]*Container, 0, len(names))
	for _, name := range names {
		containers = append(containers, c.container(name))
	}
	return containers, nil
}

// Get reads several variables of several containers in one exchange.
// Failures of single cells are reported in PropertyValue.Err.
func (c *Connection) Get(names, variables []string) (map[string]map[string]PropertyValue, error) {
	resp, err := c.call(common.NewGetRequest(names, variables), 0)
	if err != nil {
		return nil, err
	}

	result := make(map[string]map[string]PropertyValue, len(names))
	if resp.Get == nil {
		return result, nil
	}
	for _, entry := range resp.Get.List {
		values := make(map[string]PropertyValue, len(entry.KeyVal))
		for _, kv := range entry.KeyVal {
			if kv.Error != common.Success {
				values[kv.Variable] = PropertyValue{Err: c.registry.Create(kv.Error, kv.ErrorMsg)}
				continue
			}
			values[kv.Variable] = PropertyValue{Value: kv.Value}
		}
		result[entry.Name] = values
	}
	return result, nil
}

// GetProperty reads one property of a container
func (c *Connection) GetProperty(name, property string) (string, error) {
	resp, err := c.call(common.NewGetPropertyRequest(name, property), 0)
	if err != nil {
		return "", err
	}
	if resp.GetProperty == nil {
		return "", nil
	}
	return resp.GetProperty.Value, nil
}

// SetProperty writes one property of a container
func (c *Connection) SetProperty(name, property, value string) error {
	_, err := c.call(common.NewSetPropertyRequest(name, property, value), 0)
	return err
}

// Start starts a stopped container
func (c *Connection) Start(name string) error {
	_, err := c.call(common.NewStartRequest(name), 0)
	return err
}

// Stop stops a container. The daemon waits up to timeout for a graceful exit before
// killing; a negative timeout leaves the grace period to the daemon.
func (c *Connection) Stop(name string, timeout time.Duration) error {
	callTimeout := time.Duration(0)
	if timeout >= 0 {
		callTimeout = c.waitBudget(timeout)
	}
	_, err := c.call(common.NewStopRequest(name, clampMs(timeout)), callTimeout)
	return err
}

// Kill sends signal sig to the main process of the container
func (c *Connection) Kill(name string, sig int) error {
	_, err := c.call(common.NewKillRequest(name, int32(sig)), 0)
	return err
}

// Pause freezes a running container
func (c *Connection) Pause(name string) error {
	_, err := c.call(&common.Request{Pause: &common.PauseRequest{Name: name}}, 0)
	return err
}

// Resume thaws a paused container
func (c *Connection) Resume(name string) error {
	_, err := c.call(&common.Request{Resume: &common.ResumeRequest{Name: name}}, 0)
	return err
}

// container creates a handle bound to this connection
func (c *Connection) container(name string) *Container {
	return &Container{name: name, conn: c}
}

// waitBudget returns the call timeout for a daemon-side wait of d
func (c *Connection) waitBudget(d time.Duration) time.Duration {
	if d < 0 {
		return -1
	}
	return d + WaitSlack
}

// clampMs converts d to the millisecond range of the wire (negative stays negative)
func clampMs(d time.Duration) int64 {
	if d < 0 {
		return -1
	}
	ms := d.Milliseconds()
	if ms > int64(^uint32(0)) {
		ms = int64(^uint32(0))
	}
	return ms
}

// --------------------------------------------------------------------------
// Container Proxy
// --------------------------------------------------------------------------

// Container is a handle of a daemon container: its name plus the connection.
// It caches nothing; every read asks the daemon.
type Container struct {
	name string
	conn *Connection
}

// Name returns the full hierarchical name
func (ct *Container) Name() string {
	return ct.name
}

func (ct *Container) String() string {
	return "Container `" + ct.name + "`"
}

// Equal reports whether both handles name the same container
func (ct *Container) Equal(other *Container) bool {
	return other != nil && ct.name == other.name
}

// Parent returns the parent container, "/" for top level containers
func (ct *Container) Parent() *Container {
	idx := strings.LastIndex(ct.name, "/")
	if idx <= 0 {
		return ct.conn.container("/")
	}
	return ct.conn.container(ct.name[:idx])
}

// Children returns all descendants
func (ct *Container) Children() ([]*Container, error) {
	return ct.conn.ListContainers(ct.name + "/***")
}

func (ct *Container) GetProperty(property string) (string, error) {
	return ct.conn.GetProperty(ct.name, property)
}

func (ct *Container) GetPropertyBool(property string) (bool, error) {
	value, err := ct.GetProperty(property)
	if err != nil {
		return false, err
	}
	return parseBool(property, value)
}

func (ct *Container) GetPropertyInt(property string) (int64, error) {
	value, err := ct.GetProperty(property)
	if err != nil {
		return 0, err
	}
	return parseInt(property, value)
}

func (ct *Container) GetPropertyUint(property string) (uint64, error) {
	value, err := ct.GetProperty(property)
	if err != nil {
		return 0, err
	}
	return parseUint(property, value)
}

func (ct *Container) SetProperty(property, value string) error {
	return ct.conn.SetProperty(ct.name, property, value)
}

func (ct *Container) SetPropertyBool(property string, value bool) error {
	return ct.SetProperty(property, formatBool(value))
}

func (ct *Container) SetPropertyInt(property string, value int64) error {
	return ct.SetProperty(property, fmt.Sprint(value))
}

// GetProperties reads several properties in one exchange.
// The first failing property fails the whole read.
func (ct *Container) GetProperties(properties ...string) (map[string]string, error) {
	result, err := ct.conn.Get([]string{ct.name}, properties)
	if err != nil {
		return nil, err
	}
	values, ok := result[ct.name]
	if !ok {
		return nil, common.NewError(common.ContainerDoesNotExist, "container "+ct.name+" does not exist")
	}

	props := make(map[string]string, len(properties))
	for _, property := range properties {
		v, ok := values[property]
		if !ok {
			return nil, common.NewError(common.NoValue, fmt.Sprintf("no value for %s of %s", property, ct.name))
		}
		if v.Err != nil {
			return nil, v.Err
		}
		props[property] = v.Value
	}
	return props, nil
}

func (ct *Container) Start() error {
	return ct.conn.Start(ct.name)
}

func (ct *Container) Stop(timeout time.Duration) error {
	return ct.conn.Stop(ct.name, timeout)
}

func (ct *Container) Kill(sig int) error {
	return ct.conn.Kill(ct.name, sig)
}

func (ct *Container) Pause() error {
	return ct.conn.Pause(ct.name)
}

func (ct *Container) Resume() error {
	return ct.conn.Resume(ct.name)
}

// Wait blocks until the container is dead or stopped, or timeout passes
// (negative waits forever). On timeout the result has an empty name.
func (ct *Container) Wait(timeout time.Duration) (*WaitResult, error) {
	return ct.conn.Wait([]string{ct.name}, nil, timeout)
}

func (ct *Container) Destroy() error {
	return ct.conn.Destroy(ct.name)
}

// State returns the current state (stopped, running, paused, dead, meta)
func (ct *Container) State() (string, error) {
	return ct.GetProperty("state")
}

// ExitStatus returns the raw wait status of the main process of a dead container
func (ct *Container) ExitStatus() (int64, error) {
	return ct.GetPropertyInt("exit_status")
}
