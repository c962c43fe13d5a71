package editor

import (
	"bytes"
	"html/template"

	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

const (
	// FormName is the name of the hidden form exchanging scene and preview.
	FormName = "main"
	// FieldScene carries the scene JSON in and out of the editor frame.
	FieldScene = "excalidraw_diagram_json"
	// FieldSVG carries the exported preview out of the editor frame.
	FieldSVG = "excalidraw_diagram_svg"

	ButtonSave  = "ok"
	ButtonClose = "cancel"

	DialogIDPrefix = "excalidraw-dialog-"
	// EmptyScene seeds the editor for new diagrams.
	EmptyScene = "{}"
)

var dialogTemplate = template.Must(template.New("dialog").Parse(`<form name="{{.Form}}" style="display:none">
	<input type="hidden" name="{{.SceneField}}" id="{{.SceneField}}" value="{{.Scene}}">
	<input type="hidden" name="{{.SVGField}}" id="{{.SVGField}}" value="">
</form>
<iframe id="excalidraw_iframe" style="position:absolute;border:0;width:100%;height:100%;" src="{{.AssetsURL}}" title="Excalidraw frame"></iframe>
`))

type dialogData struct {
	Form       string
	SceneField string
	SVGField   string
	Scene      string
	AssetsURL  string
}

// BuildDialog renders the editor dialog for scene.
func BuildDialog(id, scene, assetsURL string) (interfaces.DialogRequest, error) {
	var buf bytes.Buffer
	err := dialogTemplate.Execute(&buf, dialogData{
		Form:       FormName,
		SceneField: FieldScene,
		SVGField:   FieldSVG,
		Scene:      scene,
		AssetsURL:  assetsURL,
	})
	if err != nil {
		return interfaces.DialogRequest{}, err
	}
	return interfaces.DialogRequest{
		ID:   id,
		HTML: buf.String(),
		Buttons: []interfaces.DialogButton{
			{ID: ButtonSave, Title: "Save"},
			{ID: ButtonClose, Title: "Close"},
		},
	}, nil
}
