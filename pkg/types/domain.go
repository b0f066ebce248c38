package types

// FileDataType is the meta type marker identifying a file envelope.
const FileDataType = "gradio.FileData"

// FileData is the file envelope exchanged with the server, both as an input
// slot after upload and as a decoded output element.
type FileData struct {
	// Server-side path of the file.
	// example: /tmp/gradio/1f3a/audio.wav
	Path string `json:"path,omitempty"`
	// Original file name as supplied by the uploader.
	// example: audio.wav
	OrigName string `json:"orig_name,omitempty"`
	// Public URL the file can be downloaded from.
	URL string `json:"url,omitempty"`
	// Size in bytes when the server reports it.
	Size *int64 `json:"size,omitempty"`
	// example: audio/wav
	MimeType string   `json:"mime_type,omitempty"`
	Meta     FileMeta `json:"meta"`
}

// FileMeta carries the type marker.
type FileMeta struct {
	// example: gradio.FileData
	Type string `json:"_type"`
}

// NewFileEnvelope builds the envelope sent in place of an uploaded file.
func NewFileEnvelope(serverPath, origName string) FileData {
	return FileData{Path: serverPath, OrigName: origName, Meta: FileMeta{Type: FileDataType}}
}

// HubHost is the registry's answer to a host lookup.
type HubHost struct {
	// example: https://gradio-hello-world.hf.space
	Host string `json:"host"`
	// example: gradio-hello-world.hf.space
	Subdomain string `json:"subdomain,omitempty"`
}

// SpaceStage is the runtime stage reported by the registry status endpoint.
type SpaceStage string

const (
	StageStopped         SpaceStage = "STOPPED"
	StageSleeping        SpaceStage = "SLEEPING"
	StageBuilding        SpaceStage = "BUILDING"
	StageStarting        SpaceStage = "APP_STARTING"
	StagePaused          SpaceStage = "PAUSED"
	StageRunning         SpaceStage = "RUNNING"
	StageRunningBuilding SpaceStage = "RUNNING_BUILDING"
)

// Known reports whether s is one of the enumerated stages. Any other value is
// carried verbatim as an unrecognized stage.
func (s SpaceStage) Known() bool {
	switch s {
	case StageStopped, StageSleeping, StageBuilding, StageStarting,
		StagePaused, StageRunning, StageRunningBuilding:
		return true
	}
	return false
}

// SpaceStatus is returned by the registry status endpoint.
type SpaceStatus struct {
	// example: gradio/hello_world
	ID      string       `json:"id"`
	Runtime SpaceRuntime `json:"runtime"`
}

// SpaceRuntime wraps the stage.
type SpaceRuntime struct {
	// example: RUNNING
	Stage SpaceStage `json:"stage"`
}
