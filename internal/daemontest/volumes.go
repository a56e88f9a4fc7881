package daemontest

import (
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
	"slices"
	"strconv"
	"strings"
)

type link struct {
	target   string
	readOnly bool
	required bool
}

type volume struct {
	path  string
	props map[string]string
	links map[string]link
}

var volumeProperties = map[string]string{
	"backend":     "Backend: plain|bind|overlay|quota|native|loop|rbd|tmpfs",
	"place":       "Place for layers and default storage",
	"storage":     "Persistent storage path or name",
	"layers":      "Layers, top layer first: <layer>;...",
	"read_only":   "Make read-only: true|false",
	"space_limit": "Disk space limit in bytes",
	"inode_limit": "Disk inode limit",
	"private":     "User-defined property",
	"owner_user":  "Owner user",
	"owner_group": "Owner group",
}

var tunableVolumeProperties = []string{"space_limit", "inode_limit"}

func (d *Daemon) describeVolumeLocked(v *volume) *common.VolumeDescription {
	desc := &common.VolumeDescription{Path: v.path}
	names := make([]string, 0, len(v.props))
	for name := range v.props {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		desc.Properties = append(desc.Properties, &common.VolumeProperty{Name: name, Value: v.props[name]})
	}
	for name := range v.links {
		desc.Containers = append(desc.Containers, name)
	}
	slices.Sort(desc.Containers)
	return desc
}

// collectVolumesLocked deletes volumes without links
func (d *Daemon) collectVolumesLocked() {
	for p, v := range d.volumes {
		if len(v.links) == 0 {
			delete(d.volumes, p)
		}
	}
}

func linkTarget(container string) string {
	if container == "" {
		return "/"
	}
	return container
}

// --------------------------------------------------------------------------
// Volume Requests
// --------------------------------------------------------------------------

func (d *Daemon) createVolume(req *common.CreateVolumeRequest) *common.Response {
	props := map[string]string{"backend": "plain"}
	for _, p := range req.Properties {
		if _, known := volumeProperties[p.Name]; !known {
			return fail(common.InvalidProperty, "invalid volume property %s", p.Name)
		}
		props[p.Name] = p.Value
	}

	for _, name := range []string{"space_limit", "inode_limit"} {
		if value, set := props[name]; set {
			if _, err := strconv.ParseUint(value, 10, 64); err != nil {
				return fail(common.InvalidValue, "invalid %s %q", name, value)
			}
		}
	}
	if layers := props["layers"]; layers != "" {
		for _, layer := range strings.Split(layers, ";") {
			if _, exists := d.layers[storeKey{place: props["place"], name: layer}]; !exists {
				return fail(common.LayerNotFound, "layer %s not found", layer)
			}
		}
	}

	path := req.Path
	if path == "" {
		d.nextVol++
		path = fmt.Sprintf("/place/porto_volumes/%d/volume", d.nextVol)
	}
	if !strings.HasPrefix(path, "/") {
		return fail(common.InvalidPath, "volume path %s is not absolute", path)
	}
	if _, exists := d.volumes[path]; exists {
		return fail(common.VolumeAlreadyExists, "volume %s already exists", path)
	}

	v := &volume{path: path, props: props, links: map[string]link{"/": {}}}
	d.volumes[path] = v
	return &common.Response{Volume: d.describeVolumeLocked(v)}
}

func (d *Daemon) lookupVolumeLocked(path string) (*volume, *common.Response) {
	v, ok := d.volumes[path]
	if !ok {
		return nil, fail(common.VolumeNotFound, "volume %s not found", path)
	}
	return v, nil
}

func (d *Daemon) linkVolume(req *common.LinkVolumeRequest) *common.Response {
	v, resp := d.lookupVolumeLocked(req.Path)
	if resp != nil {
		return resp
	}
	name := linkTarget(req.Container)
	if _, resp := d.lookupLocked(name); resp != nil {
		return resp
	}
	if _, linked := v.links[name]; linked {
		return fail(common.VolumeAlreadyLinked, "volume %s is already linked to %s", req.Path, name)
	}
	v.links[name] = link{target: req.Target, readOnly: req.ReadOnly, required: req.Required}
	return ok()
}

func (d *Daemon) unlinkVolume(req *common.UnlinkVolumeRequest) *common.Response {
	v, resp := d.lookupVolumeLocked(req.Path)
	if resp != nil {
		return resp
	}

	if req.Container == "***" {
		clear(v.links)
	} else {
		name := linkTarget(req.Container)
		if _, linked := v.links[name]; !linked {
			return fail(common.VolumeNotLinked, "volume %s is not linked to %s", req.Path, name)
		}
		delete(v.links, name)
	}

	d.collectVolumesLocked()
	return ok()
}

func (d *Daemon) listVolumes(req *common.ListVolumesRequest) *common.Response {
	if req.Path != "" {
		if _, resp := d.lookupVolumeLocked(req.Path); resp != nil {
			return resp
		}
	}

	paths := make([]string, 0, len(d.volumes))
	for p, v := range d.volumes {
		if req.Path != "" && p != req.Path {
			continue
		}
		if req.Container != "" {
			if _, linked := v.links[req.Container]; !linked {
				continue
			}
		}
		paths = append(paths, p)
	}
	slices.Sort(paths)

	list := &common.VolumeListResponse{}
	for _, p := range paths {
		list.Volumes = append(list.Volumes, d.describeVolumeLocked(d.volumes[p]))
	}
	return &common.Response{VolumeList: list}
}

func (d *Daemon) tuneVolume(req *common.TuneVolumeRequest) *common.Response {
	v, resp := d.lookupVolumeLocked(req.Path)
	if resp != nil {
		return resp
	}
	for _, p := range req.Properties {
		if !slices.Contains(tunableVolumeProperties, p.Name) {
			return fail(common.InvalidProperty, "volume property %s cannot be tuned", p.Name)
		}
		if _, err := strconv.ParseUint(p.Value, 10, 64); err != nil {
			return fail(common.InvalidValue, "invalid %s %q", p.Name, p.Value)
		}
	}
	for _, p := range req.Properties {
		v.props[p.Name] = p.Value
	}
	return ok()
}
