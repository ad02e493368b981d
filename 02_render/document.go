package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// sceneDoc keeps every scene on one fixed canvas; overflow is clipped
var sceneDoc = template.Must(template.New("scene").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  html, body {
    width: {{.Width}}px;
    height: {{.Height}}px;
    overflow: hidden;
    background: #ffffff;
    font-family: "Inter", "Segoe UI", Arial, sans-serif;
  }
  .scene-wrapper {
    width: {{.Width}}px;
    height: {{.Height}}px;
    display: flex;
    flex-direction: column;
    justify-content: center;
    align-items: center;
    padding: 50px;
    position: absolute;
    top: 0;
    left: 0;
  }
  .content-container {
    width: 100%;
    max-width: {{.InnerWidth}}px;
    max-height: {{.InnerHeight}}px;
    overflow: hidden;
    text-align: center;
  }
  .title { font-size: 72px; line-height: 1.1; }
  .subtitle { font-size: 36px; line-height: 1.2; }
  .content { font-size: 28px; line-height: 1.4; }
  .small-text { font-size: 20px; line-height: 1.3; }
  .truncate { white-space: nowrap; overflow: hidden; text-overflow: ellipsis; }
  .wrap { word-wrap: break-word; hyphens: auto; }
</style>
</head>
<body>
  <div class="scene-wrapper">
    <div class="content-container">
      {{.Body}}
    </div>
  </div>
</body>
</html>
`))

type sceneData struct {
	Width, Height           int
	InnerWidth, InnerHeight int
	Body                    template.HTML
}

// WrapScene embeds provider markup in a width x height document. The markup
// is trusted and inserted verbatim.
func WrapScene(markup string, width, height int) (string, error) {
	if strings.TrimSpace(markup) == "" {
		return "", fmt.Errorf("scene markup is empty")
	}
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid canvas %dx%d", width, height)
	}
	data := sceneData{
		Width:       width,
		Height:      height,
		InnerWidth:  max(width-120, width/2),
		InnerHeight: max(height-100, height/2),
		Body:        template.HTML(markup),
	}
	var buf bytes.Buffer
	if err := sceneDoc.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("wrap scene: %w", err)
	}
	return buf.String(), nil
}
