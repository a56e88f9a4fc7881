package common

import (
	"reflect"
	"strings"
)

// Message is implemented by the two top-level envelopes exchanged with the daemon
type Message interface {
	portoMessage()
}

// Every field carries its protobuf field number in the `protobuf` tag. Scalars are
// omitted when zero unless they are pointers; pointers to scalars encode presence.

// --------------------------------------------------------------------------
// Request Envelope
// --------------------------------------------------------------------------

// Request is the envelope of every call. Exactly one field is set.
type Request struct {
	Create       *CreateRequest       `protobuf:"1" json:"create,omitempty"`
	Destroy      *DestroyRequest      `protobuf:"2" json:"destroy,omitempty"`
	List         *ListRequest         `protobuf:"3" json:"list,omitempty"`
	GetProperty  *GetPropertyRequest  `protobuf:"4" json:"getProperty,omitempty"`
	SetProperty  *SetPropertyRequest  `protobuf:"5" json:"setProperty,omitempty"`
	Start        *StartRequest        `protobuf:"7" json:"start,omitempty"`
	Stop         *StopRequest         `protobuf:"8" json:"stop,omitempty"`
	Pause        *PauseRequest        `protobuf:"9" json:"pause,omitempty"`
	Resume       *ResumeRequest       `protobuf:"10" json:"resume,omitempty"`
	PropertyList *PropertyListRequest `protobuf:"11" json:"propertyList,omitempty"`
	Kill         *KillRequest         `protobuf:"13" json:"kill,omitempty"`
	Version      *VersionRequest      `protobuf:"14" json:"version,omitempty"`
	Get          *GetRequest          `protobuf:"15" json:"get,omitempty"`
	Wait         *WaitRequest         `protobuf:"16" json:"wait,omitempty"`
	CreateWeak   *CreateRequest       `protobuf:"17" json:"createWeak,omitempty"`

	ListVolumeProperties *ListVolumePropertiesRequest `protobuf:"103" json:"listVolumeProperties,omitempty"`
	CreateVolume         *CreateVolumeRequest         `protobuf:"104" json:"createVolume,omitempty"`
	LinkVolume           *LinkVolumeRequest           `protobuf:"105" json:"linkVolume,omitempty"`
	UnlinkVolume         *UnlinkVolumeRequest         `protobuf:"106" json:"unlinkVolume,omitempty"`
	ListVolumes          *ListVolumesRequest          `protobuf:"107" json:"listVolumes,omitempty"`
	TuneVolume           *TuneVolumeRequest           `protobuf:"108" json:"tuneVolume,omitempty"`

	ImportLayer     *ImportLayerRequest     `protobuf:"110" json:"importLayer,omitempty"`
	RemoveLayer     *RemoveLayerRequest     `protobuf:"111" json:"removeLayer,omitempty"`
	ListLayers      *ListLayersRequest      `protobuf:"112" json:"listLayers,omitempty"`
	ExportLayer     *ExportLayerRequest     `protobuf:"113" json:"exportLayer,omitempty"`
	GetLayerPrivate *GetLayerPrivateRequest `protobuf:"114" json:"getLayerPrivate,omitempty"`
	SetLayerPrivate *SetLayerPrivateRequest `protobuf:"115" json:"setLayerPrivate,omitempty"`

	ListStorage   *ListStorageRequest   `protobuf:"116" json:"listStorage,omitempty"`
	RemoveStorage *RemoveStorageRequest `protobuf:"117" json:"removeStorage,omitempty"`
	ConvertPath   *ConvertPathRequest   `protobuf:"118" json:"convertPath,omitempty"`
	ImportStorage *ImportStorageRequest `protobuf:"121" json:"importStorage,omitempty"`
	ExportStorage *ExportStorageRequest `protobuf:"122" json:"exportStorage,omitempty"`
	LocateProcess *LocateProcessRequest `protobuf:"124" json:"locateProcess,omitempty"`

	CreateMetaStorage *MetaStorageRequest `protobuf:"125" json:"createMetaStorage,omitempty"`
	ResizeMetaStorage *MetaStorageRequest `protobuf:"126" json:"resizeMetaStorage,omitempty"`
	RemoveMetaStorage *MetaStorageRequest `protobuf:"127" json:"removeMetaStorage,omitempty"`
}

func (*Request) portoMessage() {}

// Kind returns the name of the operation carried by the request ("" if empty)
func (r *Request) Kind() string {
	v := reflect.ValueOf(r).Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if !v.Field(i).IsNil() {
			return strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		}
	}
	return ""
}

// --------------------------------------------------------------------------
// Container Requests
// --------------------------------------------------------------------------

type CreateRequest struct {
	Name string `protobuf:"1" json:"name"`
}

type DestroyRequest struct {
	Name string `protobuf:"1" json:"name"`
}

type ListRequest struct {
	Mask string `protobuf:"1" json:"mask,omitempty"`
}

type GetPropertyRequest struct {
	Name     string `protobuf:"1" json:"name"`
	Property string `protobuf:"2" json:"property"`
	Sync     bool   `protobuf:"3" json:"sync,omitempty"`
	Real     bool   `protobuf:"4" json:"real,omitempty"`
}

type SetPropertyRequest struct {
	Name     string `protobuf:"1" json:"name"`
	Property string `protobuf:"2" json:"property"`
	Value    string `protobuf:"3" json:"value"`
}

type StartRequest struct {
	Name string `protobuf:"1" json:"name"`
}

type StopRequest struct {
	Name      string  `protobuf:"1" json:"name"`
	TimeoutMs *uint32 `protobuf:"2" json:"timeoutMs,omitempty"`
}

type PauseRequest struct {
	Name string `protobuf:"1" json:"name"`
}

type ResumeRequest struct {
	Name string `protobuf:"1" json:"name"`
}

type PropertyListRequest struct{}

type KillRequest struct {
	Name string `protobuf:"1" json:"name"`
	Sig  int32  `protobuf:"2" json:"sig"`
}

type VersionRequest struct{}

// GetRequest reads several variables of several containers in one exchange
type GetRequest struct {
	Names     []string `protobuf:"1" json:"names"`
	Variables []string `protobuf:"2" json:"variables"`
	Nonblock  bool     `protobuf:"3" json:"nonblock,omitempty"`
	Sync      bool     `protobuf:"4" json:"sync,omitempty"`
	Real      bool     `protobuf:"5" json:"real,omitempty"`
}

// WaitRequest blocks until one of Names (wildcards allowed) reaches a waitable state.
// A nil TimeoutMs waits forever. ChangedAfter restricts the answer to state changes
// that happened after the given "when" watermark.
type WaitRequest struct {
	Names        []string `protobuf:"1" json:"names"`
	TimeoutMs    *uint32  `protobuf:"2" json:"timeoutMs,omitempty"`
	Labels       []string `protobuf:"3" json:"labels,omitempty"`
	TargetState  string   `protobuf:"4" json:"targetState,omitempty"`
	ChangedAfter uint64   `protobuf:"5" json:"changedAfter,omitempty"`
}

// --------------------------------------------------------------------------
// Volume Requests
// --------------------------------------------------------------------------

type VolumeProperty struct {
	Name  string `protobuf:"1" json:"name"`
	Value string `protobuf:"2" json:"value"`
}

type ListVolumePropertiesRequest struct{}

type CreateVolumeRequest struct {
	Path       string            `protobuf:"1" json:"path,omitempty"`
	Properties []*VolumeProperty `protobuf:"2" json:"properties,omitempty"`
}

type LinkVolumeRequest struct {
	Path      string `protobuf:"1" json:"path"`
	Container string `protobuf:"2" json:"container,omitempty"`
	Target    string `protobuf:"3" json:"target,omitempty"`
	Required  bool   `protobuf:"4" json:"required,omitempty"`
	ReadOnly  bool   `protobuf:"5" json:"readOnly,omitempty"`
}

type UnlinkVolumeRequest struct {
	Path      string `protobuf:"1" json:"path"`
	Container string `protobuf:"2" json:"container,omitempty"`
	Target    string `protobuf:"3" json:"target,omitempty"`
	Strict    bool   `protobuf:"4" json:"strict,omitempty"`
}

type ListVolumesRequest struct {
	Path      string `protobuf:"1" json:"path,omitempty"`
	Container string `protobuf:"2" json:"container,omitempty"`
}

type TuneVolumeRequest struct {
	Path       string            `protobuf:"1" json:"path"`
	Properties []*VolumeProperty `protobuf:"2" json:"properties"`
}

// --------------------------------------------------------------------------
// Layer and Storage Requests
// --------------------------------------------------------------------------

type ImportLayerRequest struct {
	Layer        string `protobuf:"1" json:"layer"`
	Tarball      string `protobuf:"2" json:"tarball"`
	Merge        bool   `protobuf:"3" json:"merge,omitempty"`
	Place        string `protobuf:"4" json:"place,omitempty"`
	PrivateValue string `protobuf:"5" json:"privateValue,omitempty"`
}

type RemoveLayerRequest struct {
	Layer string `protobuf:"1" json:"layer"`
	Place string `protobuf:"2" json:"place,omitempty"`
}

type ListLayersRequest struct {
	Place string `protobuf:"1" json:"place,omitempty"`
	Mask  string `protobuf:"2" json:"mask,omitempty"`
}

type ExportLayerRequest struct {
	Volume   string `protobuf:"1" json:"volume,omitempty"`
	Tarball  string `protobuf:"2" json:"tarball"`
	Layer    string `protobuf:"3" json:"layer,omitempty"`
	Place    string `protobuf:"4" json:"place,omitempty"`
	Compress string `protobuf:"5" json:"compress,omitempty"`
}

type GetLayerPrivateRequest struct {
	Layer string `protobuf:"1" json:"layer"`
	Place string `protobuf:"2" json:"place,omitempty"`
}

type SetLayerPrivateRequest struct {
	Layer        string `protobuf:"1" json:"layer"`
	Place        string `protobuf:"2" json:"place,omitempty"`
	PrivateValue string `protobuf:"3" json:"privateValue"`
}

type ListStorageRequest struct {
	Place string `protobuf:"1" json:"place,omitempty"`
	Mask  string `protobuf:"2" json:"mask,omitempty"`
}

type RemoveStorageRequest struct {
	Name  string `protobuf:"1" json:"name"`
	Place string `protobuf:"2" json:"place,omitempty"`
}

type ImportStorageRequest struct {
	Name         string `protobuf:"1" json:"name"`
	Tarball      string `protobuf:"2" json:"tarball"`
	Place        string `protobuf:"3" json:"place,omitempty"`
	PrivateValue string `protobuf:"4" json:"privateValue,omitempty"`
	Compress     string `protobuf:"5" json:"compress,omitempty"`
}

type ExportStorageRequest struct {
	Name     string `protobuf:"1" json:"name"`
	Tarball  string `protobuf:"2" json:"tarball"`
	Place    string `protobuf:"3" json:"place,omitempty"`
	Compress string `protobuf:"4" json:"compress,omitempty"`
}

// MetaStorageRequest is shared by create, resize and remove
type MetaStorageRequest struct {
	Name         string `protobuf:"1" json:"name"`
	Place        string `protobuf:"2" json:"place,omitempty"`
	PrivateValue string `protobuf:"3" json:"privateValue,omitempty"`
	SpaceLimit   uint64 `protobuf:"4" json:"spaceLimit,omitempty"`
	InodeLimit   uint64 `protobuf:"5" json:"inodeLimit,omitempty"`
}

type ConvertPathRequest struct {
	Path        string `protobuf:"1" json:"path"`
	Source      string `protobuf:"2" json:"source,omitempty"`
	Destination string `protobuf:"3" json:"destination,omitempty"`
}

type LocateProcessRequest struct {
	Pid  uint32 `protobuf:"1" json:"pid"`
	Comm string `protobuf:"2" json:"comm,omitempty"`
}

// --------------------------------------------------------------------------
// Response Envelope
// --------------------------------------------------------------------------

// Response is the envelope of every answer. Error is Success or the failure code;
// at most one result field is set.
type Response struct {
	Error    ErrorCode `protobuf:"1" json:"error"`
	ErrorMsg string    `protobuf:"2" json:"errorMsg,omitempty"`

	List               *ListResponse            `protobuf:"3" json:"list,omitempty"`
	GetProperty        *GetPropertyResponse     `protobuf:"4" json:"getProperty,omitempty"`
	PropertyList       *PropertyListResponse    `protobuf:"6" json:"propertyList,omitempty"`
	Version            *VersionResponse         `protobuf:"8" json:"version,omitempty"`
	Get                *GetResponse             `protobuf:"9" json:"get,omitempty"`
	Wait               *WaitResponse            `protobuf:"10" json:"wait,omitempty"`
	VolumePropertyList *PropertyListResponse    `protobuf:"11" json:"volumePropertyList,omitempty"`
	Volume             *VolumeDescription       `protobuf:"12" json:"volume,omitempty"`
	VolumeList         *VolumeListResponse      `protobuf:"13" json:"volumeList,omitempty"`
	Layers             *ListLayersResponse      `protobuf:"14" json:"layers,omitempty"`
	LayerPrivate       *GetLayerPrivateResponse `protobuf:"15" json:"layerPrivate,omitempty"`
	StorageList        *ListStorageResponse     `protobuf:"16" json:"storageList,omitempty"`
	ConvertPath        *ConvertPathResponse     `protobuf:"17" json:"convertPath,omitempty"`
	LocateProcess      *LocateProcessResponse   `protobuf:"18" json:"locateProcess,omitempty"`
}

func (*Response) portoMessage() {}

// NewErrorResponse creates a failed response
func NewErrorResponse(code ErrorCode, msg string) *Response {
	return &Response{
		Error:    code,
		ErrorMsg: msg,
	}
}

type ListResponse struct {
	Names []string `protobuf:"1" json:"names"`
}

type GetPropertyResponse struct {
	Value string `protobuf:"1" json:"value"`
}

type PropertyDescription struct {
	Name string `protobuf:"1" json:"name"`
	Desc string `protobuf:"2" json:"desc"`
}

type PropertyListResponse struct {
	List []*PropertyDescription `protobuf:"1" json:"list"`
}

type VersionResponse struct {
	Tag      string `protobuf:"1" json:"tag"`
	Revision string `protobuf:"2" json:"revision"`
}

type GetValue struct {
	Variable string    `protobuf:"1" json:"variable"`
	Error    ErrorCode `protobuf:"2" json:"error,omitempty"`
	ErrorMsg string    `protobuf:"3" json:"errorMsg,omitempty"`
	Value    string    `protobuf:"4" json:"value,omitempty"`
}

type GetEntry struct {
	Name   string      `protobuf:"1" json:"name"`
	KeyVal []*GetValue `protobuf:"2" json:"keyval"`
}

type GetResponse struct {
	List []*GetEntry `protobuf:"1" json:"list"`
}

// WaitResponse names the container that reached a waitable state; Name is empty when
// the wait timed out on the server.
type WaitResponse struct {
	Name  string `protobuf:"1" json:"name"`
	State string `protobuf:"2" json:"state,omitempty"`
	When  uint64 `protobuf:"3" json:"when,omitempty"`
	Label string `protobuf:"4" json:"label,omitempty"`
	Value string `protobuf:"5" json:"value,omitempty"`
}

type VolumeDescription struct {
	Path       string            `protobuf:"1" json:"path"`
	Properties []*VolumeProperty `protobuf:"2" json:"properties,omitempty"`
	Containers []string          `protobuf:"3" json:"containers,omitempty"`
}

type VolumeListResponse struct {
	Volumes []*VolumeDescription `protobuf:"1" json:"volumes"`
}

type LayerDescription struct {
	Name         string `protobuf:"1" json:"name"`
	OwnerUser    string `protobuf:"2" json:"ownerUser,omitempty"`
	OwnerGroup   string `protobuf:"3" json:"ownerGroup,omitempty"`
	LastUsage    uint64 `protobuf:"4" json:"lastUsage,omitempty"`
	PrivateValue string `protobuf:"5" json:"privateValue,omitempty"`
}

type ListLayersResponse struct {
	Names  []string            `protobuf:"1" json:"names,omitempty"`
	Layers []*LayerDescription `protobuf:"2" json:"layers,omitempty"`
}

type GetLayerPrivateResponse struct {
	PrivateValue string `protobuf:"1" json:"privateValue"`
}

type StorageDescription struct {
	Name         string `protobuf:"1" json:"name"`
	OwnerUser    string `protobuf:"2" json:"ownerUser,omitempty"`
	OwnerGroup   string `protobuf:"3" json:"ownerGroup,omitempty"`
	LastUsage    uint64 `protobuf:"4" json:"lastUsage,omitempty"`
	PrivateValue string `protobuf:"5" json:"privateValue,omitempty"`
}

type MetaStorageDescription struct {
	Name           string `protobuf:"1" json:"name"`
	PrivateValue   string `protobuf:"2" json:"privateValue,omitempty"`
	LastUsage      uint64 `protobuf:"3" json:"lastUsage,omitempty"`
	SpaceLimit     uint64 `protobuf:"4" json:"spaceLimit,omitempty"`
	InodeLimit     uint64 `protobuf:"5" json:"inodeLimit,omitempty"`
	SpaceUsed      uint64 `protobuf:"6" json:"spaceUsed,omitempty"`
	SpaceAvailable uint64 `protobuf:"7" json:"spaceAvailable,omitempty"`
	InodeUsed      uint64 `protobuf:"8" json:"inodeUsed,omitempty"`
	InodeAvailable uint64 `protobuf:"9" json:"inodeAvailable,omitempty"`
}

type ListStorageResponse struct {
	Storages     []*StorageDescription     `protobuf:"1" json:"storages,omitempty"`
	MetaStorages []*MetaStorageDescription `protobuf:"2" json:"metaStorages,omitempty"`
}

type ConvertPathResponse struct {
	Path string `protobuf:"1" json:"path"`
}

type LocateProcessResponse struct {
	Name string `protobuf:"1" json:"name"`
}

// --------------------------------------------------------------------------
// Request Factory Functions
// --------------------------------------------------------------------------

// NewCreateRequest creates a new Create request
func NewCreateRequest(name string) *Request {
	return &Request{Create: &CreateRequest{Name: name}}
}

// NewCreateWeakRequest creates a new CreateWeak request
func NewCreateWeakRequest(name string) *Request {
	return &Request{CreateWeak: &CreateRequest{Name: name}}
}

// NewDestroyRequest creates a new Destroy request
func NewDestroyRequest(name string) *Request {
	return &Request{Destroy: &DestroyRequest{Name: name}}
}

// NewListRequest creates a new List request
func NewListRequest(mask string) *Request {
	return &Request{List: &ListRequest{Mask: mask}}
}

// NewGetPropertyRequest creates a new GetProperty request
func NewGetPropertyRequest(name, property string) *Request {
	return &Request{GetProperty: &GetPropertyRequest{Name: name, Property: property}}
}

// NewSetPropertyRequest creates a new SetProperty request
func NewSetPropertyRequest(name, property, value string) *Request {
	return &Request{SetProperty: &SetPropertyRequest{Name: name, Property: property, Value: value}}
}

// NewStartRequest creates a new Start request
func NewStartRequest(name string) *Request {
	return &Request{Start: &StartRequest{Name: name}}
}

// NewStopRequest creates a new Stop request. A negative timeout leaves the grace
// period to the daemon.
func NewStopRequest(name string, timeoutMs int64) *Request {
	req := &StopRequest{Name: name}
	if timeoutMs >= 0 {
		ms := uint32(timeoutMs)
		req.TimeoutMs = &ms
	}
	return &Request{Stop: req}
}

// NewKillRequest creates a new Kill request
func NewKillRequest(name string, sig int32) *Request {
	return &Request{Kill: &KillRequest{Name: name, Sig: sig}}
}

// NewGetRequest creates a new Get request
func NewGetRequest(names, variables []string) *Request {
	return &Request{Get: &GetRequest{Names: names, Variables: variables}}
}

// NewWaitRequest creates a new Wait request. A negative timeout waits forever.
func NewWaitRequest(names, labels []string, timeoutMs int64) *Request {
	req := &WaitRequest{Names: names, Labels: labels}
	if timeoutMs >= 0 {
		ms := uint32(timeoutMs)
		req.TimeoutMs = &ms
	}
	return &Request{Wait: req}
}
