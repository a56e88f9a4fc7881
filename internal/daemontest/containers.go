package daemontest

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	stateStopped = "stopped"
	stateRunning = "running"
	statePaused  = "paused"
	stateDead    = "dead"
	stateMeta    = "meta"
)

type container struct {
	name       string
	state      string
	weak       bool
	props      map[string]string
	exitStatus int
	pid        uint32
	changed    uint64
}

// containerProperties lists the writable properties. Static ones can only be
// changed while the container is stopped.
var containerProperties = map[string]string{
	"command":      "Command executed upon container start",
	"cwd":          "Container working directory",
	"env":          "Container environment variables: <name>=<value>; ...",
	"user":         "Start command with given user",
	"group":        "Start command with given group",
	"isolate":      "Isolate container from parent: true|false",
	"root":         "Container root path in parent namespace",
	"respawn":      "Automatically respawn dead container: true|false",
	"memory_limit": "Memory hard limit in bytes",
	"private":      "User-defined property",
}

var staticProperties = []string{"command", "cwd", "env", "user", "group", "isolate", "root"}

var readOnlyProperties = []string{"state", "exit_status", "exit_code", "root_pid", "parent", "weak"}

// --------------------------------------------------------------------------
// Container Requests
// --------------------------------------------------------------------------

func validName(name string) bool {
	return name != "" &&
		len(name) <= 200 &&
		!strings.HasPrefix(name, "/") &&
		!strings.HasSuffix(name, "/") &&
		!strings.Contains(name, "//") &&
		!strings.ContainsAny(name, "*? \t\n") &&
		!slices.Contains(strings.Split(name, "/"), "..")
}

func parentName(name string) string {
	idx := strings.LastIndex(name, "/")
	if idx <= 0 {
		return "/"
	}
	return name[:idx]
}

// lookupLocked returns the container or a ContainerDoesNotExist response
func (d *Daemon) lookupLocked(name string) (*container, *common.Response) {
	c, ok := d.containers[name]
	if !ok {
		return nil, fail(common.ContainerDoesNotExist, "container %s does not exist", name)
	}
	return c, nil
}

func (d *Daemon) create(name string, weak bool) *common.Response {
	if !validName(name) {
		return fail(common.InvalidValue, "invalid container name %q", name)
	}
	if _, exists := d.containers[name]; exists {
		return fail(common.ContainerAlreadyExists, "container %s already exists", name)
	}
	if _, exists := d.containers[parentName(name)]; !exists {
		return fail(common.ContainerDoesNotExist, "parent container %s does not exist", parentName(name))
	}

	c := &container{name: name, weak: weak, props: map[string]string{}}
	d.containers[name] = c
	d.recordLocked(c, stateStopped)
	return ok()
}

func (d *Daemon) destroy(name string) *common.Response {
	if name == "/" {
		return fail(common.Permission, "cannot destroy the root container")
	}
	if _, resp := d.lookupLocked(name); resp != nil {
		return resp
	}

	// children first
	names := d.matchLocked(name + "/***")
	slices.Reverse(names)
	for _, n := range append(names, name) {
		for _, v := range d.volumes {
			delete(v.links, n)
		}
		delete(d.containers, n)
	}
	d.collectVolumesLocked()
	return ok()
}

// matchLocked returns the sorted names of all containers matching mask, except "/"
func (d *Daemon) matchLocked(mask string) []string {
	names := make([]string, 0, len(d.containers))
	for name := range d.containers {
		if name != "/" && matchMask(mask, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func (d *Daemon) list(mask string) *common.Response {
	return &common.Response{List: &common.ListResponse{Names: d.matchLocked(mask)}}
}

// propertyLocked reads one property of c
func (d *Daemon) propertyLocked(c *container, property string) (string, *common.Response) {
	switch property {
	case "state":
		return c.state, nil
	case "exit_status", "exit_code":
		if c.state != stateDead {
			return "", fail(common.InvalidState, "%s is not available in state %s", property, c.state)
		}
		if property == "exit_code" {
			if c.exitStatus&0x7f != 0 {
				return strconv.Itoa(-(c.exitStatus & 0x7f)), nil
			}
			return strconv.Itoa(c.exitStatus >> 8), nil
		}
		return strconv.Itoa(c.exitStatus), nil
	case "root_pid":
		if c.state != stateRunning && c.state != statePaused {
			return "0", nil
		}
		return strconv.FormatUint(uint64(c.pid), 10), nil
	case "parent":
		return parentName(c.name), nil
	case "weak":
		return strconv.FormatBool(c.weak), nil
	}
	if _, known := containerProperties[property]; !known {
		return "", fail(common.InvalidProperty, "invalid property %s", property)
	}
	return c.props[property], nil
}

func (d *Daemon) getProperty(name, property string) *common.Response {
	c, resp := d.lookupLocked(name)
	if resp != nil {
		return resp
	}
	value, resp := d.propertyLocked(c, property)
	if resp != nil {
		return resp
	}
	return &common.Response{GetProperty: &common.GetPropertyResponse{Value: value}}
}

func (d *Daemon) get(names, variables []string) *common.Response {
	list := make([]*common.GetEntry, 0, len(names))
	for _, name := range names {
		entry := &common.GetEntry{Name: name}
		c, missing := d.lookupLocked(name)
		for _, variable := range variables {
			kv := &common.GetValue{Variable: variable}
			resp := missing
			if resp == nil {
				kv.Value, resp = d.propertyLocked(c, variable)
			}
			if resp != nil {
				kv.Error, kv.ErrorMsg = resp.Error, resp.ErrorMsg
			}
			entry.KeyVal = append(entry.KeyVal, kv)
		}
		list = append(list, entry)
	}
	return &common.Response{Get: &common.GetResponse{List: list}}
}

func (d *Daemon) setProperty(name, property, value string) *common.Response {
	c, resp := d.lookupLocked(name)
	if resp != nil {
		return resp
	}
	if slices.Contains(readOnlyProperties, property) {
		return fail(common.InvalidProperty, "property %s is read-only", property)
	}
	if _, known := containerProperties[property]; !known {
		return fail(common.InvalidProperty, "invalid property %s", property)
	}
	if slices.Contains(staticProperties, property) && c.state != stateStopped {
		return fail(common.InvalidState, "cannot change %s in state %s", property, c.state)
	}

	switch property {
	case "isolate", "respawn":
		if value != "true" && value != "false" {
			return fail(common.InvalidValue, "invalid boolean value %q", value)
		}
	case "memory_limit":
		if _, err := strconv.ParseUint(value, 10, 64); err != nil {
			return fail(common.InvalidValue, "invalid memory limit %q", value)
		}
	}

	c.props[property] = value
	return ok()
}

func (d *Daemon) start(name string) *common.Response {
	c, resp := d.lookupLocked(name)
	if resp != nil {
		return resp
	}
	if c.state != stateStopped {
		return fail(common.InvalidState, "cannot start container %s in state %s", name, c.state)
	}

	command := strings.TrimSpace(c.props["command"])
	if command == "" {
		d.recordLocked(c, stateMeta)
		return ok()
	}

	d.nextPid++
	c.pid = d.nextPid
	d.recordLocked(c, stateRunning)

	// emulate commands that exit immediately
	switch command {
	case "true":
		c.exitStatus = 0
		d.recordLocked(c, stateDead)
	case "false":
		c.exitStatus = 1 << 8
		d.recordLocked(c, stateDead)
	}
	return ok()
}

func (d *Daemon) stop(name string) *common.Response {
	c, resp := d.lookupLocked(name)
	if resp != nil {
		return resp
	}
	if c.state == stateStopped {
		return fail(common.InvalidState, "container %s is already stopped", name)
	}

	names := d.matchLocked(name + "/***")
	slices.Reverse(names)
	for _, n := range append(names, name) {
		child := d.containers[n]
		if child.state != stateStopped {
			child.exitStatus = 0
			child.pid = 0
			d.recordLocked(child, stateStopped)
		}
	}
	return ok()
}

func (d *Daemon) kill(name string, sig int32) *common.Response {
	c, resp := d.lookupLocked(name)
	if resp != nil {
		return resp
	}
	if sig <= 0 || sig > 64 {
		return fail(common.InvalidValue, "invalid signal %d", sig)
	}
	if c.state != stateRunning {
		return fail(common.InvalidState, "cannot kill container %s in state %s", name, c.state)
	}
	c.exitStatus = int(sig)
	d.recordLocked(c, stateDead)
	return ok()
}

func (d *Daemon) pause(name string) *common.Response {
	c, resp := d.lookupLocked(name)
	if resp != nil {
		return resp
	}
	if c.state != stateRunning && c.state != stateMeta {
		return fail(common.InvalidState, "cannot pause container %s in state %s", name, c.state)
	}
	d.recordLocked(c, statePaused)
	return ok()
}

func (d *Daemon) resume(name string) *common.Response {
	c, resp := d.lookupLocked(name)
	if resp != nil {
		return resp
	}
	if c.state != statePaused {
		return fail(common.InvalidState, "container %s is not paused", name)
	}
	d.recordLocked(c, stateRunning)
	return ok()
}

// rootLocked returns the root of name in the host namespace
func (d *Daemon) rootLocked(name string) (string, *common.Response) {
	if name == "" || name == "/" {
		return "/", nil
	}
	c, resp := d.lookupLocked(name)
	if resp != nil {
		return "", resp
	}
	parent, resp := d.rootLocked(parentName(name))
	if resp != nil {
		return "", resp
	}
	return path.Join(parent, c.props["root"]), nil
}

func (d *Daemon) convertPath(req *common.ConvertPathRequest) *common.Response {
	src, resp := d.rootLocked(req.Source)
	if resp != nil {
		return resp
	}
	dst, resp := d.rootLocked(req.Destination)
	if resp != nil {
		return resp
	}

	abs := path.Join(src, req.Path)
	var converted string
	switch {
	case dst == "/":
		converted = abs
	case abs == dst:
		converted = "/"
	case strings.HasPrefix(abs, dst+"/"):
		converted = abs[len(dst):]
	default:
		return fail(common.InvalidValue, "path %s is not visible in %s", abs, req.Destination)
	}
	return &common.Response{ConvertPath: &common.ConvertPathResponse{Path: converted}}
}

func (d *Daemon) locateProcess(pid uint32) *common.Response {
	for _, name := range d.matchLocked("") {
		c := d.containers[name]
		if c.pid == pid && (c.state == stateRunning || c.state == statePaused) {
			return &common.Response{LocateProcess: &common.LocateProcessResponse{Name: name}}
		}
	}
	return fail(common.ContainerDoesNotExist, "no container for pid %d", pid)
}

// --------------------------------------------------------------------------
// Wait
// --------------------------------------------------------------------------

// wait answers immediately if a change is already visible and otherwise blocks
// until the next state change, the timeout or Close
func (d *Daemon) wait(req *common.WaitRequest) *common.Response {
	var timeout <-chan time.Time
	if req.TimeoutMs != nil {
		timer := time.NewTimer(time.Duration(*req.TimeoutMs) * time.Millisecond)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		d.mu.Lock()
		resp := d.pollWaitLocked(req)
		changed := d.changed
		d.mu.Unlock()

		if resp != nil {
			return resp
		}

		select {
		case <-changed:
		case <-timeout:
			return &common.Response{Wait: &common.WaitResponse{}}
		case <-d.closed:
			return fail(common.Unknown, "daemon is shutting down")
		}
	}
}

// pollWaitLocked returns the answer to req if one is available.
// Without a watermark a container that is dead or stopped (or in TargetState)
// satisfies the wait; with a watermark the first recorded change after it does.
func (d *Daemon) pollWaitLocked(req *common.WaitRequest) *common.Response {
	for _, name := range req.Names {
		if !strings.ContainsAny(name, "*?") {
			if _, resp := d.lookupLocked(name); resp != nil {
				return resp
			}
		}
	}

	matches := func(name, state string) bool {
		if req.TargetState != "" && state != req.TargetState {
			return false
		}
		for _, mask := range req.Names {
			if matchMask(mask, name) {
				return true
			}
		}
		return false
	}

	if req.ChangedAfter > 0 {
		for _, e := range d.events {
			if e.when > req.ChangedAfter && matches(e.name, e.state) {
				return &common.Response{Wait: &common.WaitResponse{Name: e.name, State: e.state, When: e.when}}
			}
		}
		return nil
	}

	for _, name := range d.matchLocked("") {
		c := d.containers[name]
		waitable := c.state == stateDead || c.state == stateStopped
		if req.TargetState != "" {
			waitable = c.state == req.TargetState
		}
		if waitable && matches(name, c.state) {
			return &common.Response{Wait: &common.WaitResponse{Name: name, State: c.state, When: c.changed}}
		}
	}
	return nil
}

// matchMask matches container and storage names. "*" does not cross "/",
// a trailing "***" matches everything below the prefix, an empty mask matches all.
func matchMask(mask, name string) bool {
	if mask == "" || mask == "***" {
		return true
	}
	if prefix, found := strings.CutSuffix(mask, "***"); found {
		return strings.HasPrefix(name, prefix)
	}
	matched, err := path.Match(mask, name)
	return err == nil && matched
}

func describe(props map[string]string) []*common.PropertyDescription {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	slices.Sort(names)

	list := make([]*common.PropertyDescription, 0, len(names))
	for _, name := range names {
		list = append(list, &common.PropertyDescription{Name: name, Desc: props[name]})
	}
	return list
}
