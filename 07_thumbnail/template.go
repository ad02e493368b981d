package thumbnail

import (
	"bytes"
	"html/template"
	"strings"

	"leetcode-video-pipeline/types"
)

var fallbackDoc = template.Must(template.New("thumbnail").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}} - Thumbnail</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { width: {{.Width}}px; height: {{.Height}}px; overflow: hidden; }
  .container {
    width: {{.Width}}px;
    height: {{.Height}}px;
    position: relative;
    background: linear-gradient(135deg, #0f172a 0%, #1e293b 60%, #0b3b2e 100%);
    font-family: "Montserrat", "Segoe UI", Arial, sans-serif;
    overflow: hidden;
  }
  .main-title {
    position: absolute;
    top: 60px;
    left: 60px;
    right: 60px;
    font-size: 72px;
    font-weight: 900;
    line-height: 1.1;
    color: #ffffff;
    text-shadow: 2px 2px 8px rgba(0, 0, 0, 0.5);
    overflow: hidden;
    max-height: 240px;
  }
  .subtitle {
    position: absolute;
    top: 330px;
    left: 60px;
    font-size: 34px;
    font-weight: 700;
    color: #e2e8f0;
  }
  .difficulty {
    display: inline-block;
    padding: 6px 18px;
    border-radius: 20px;
    color: #000000;
    font-weight: bold;
    margin-left: 15px;
  }
  .easy { background-color: #00ff88; }
  .medium { background-color: #ffcc00; }
  .hard { background-color: #ff4444; }
  .code-block {
    position: absolute;
    bottom: 70px;
    left: 60px;
    right: 60px;
    font-family: "Courier New", monospace;
    font-size: 28px;
    line-height: 1.5;
    color: #a7f3d0;
    background: rgba(0, 0, 0, 0.6);
    padding: 20px 28px;
    border-radius: 10px;
    border-left: 6px solid #00ff88;
    white-space: nowrap;
    overflow: hidden;
    text-overflow: ellipsis;
  }
</style>
</head>
<body>
  <div class="container">
    <div class="main-title">{{.Title}}</div>
    <div class="subtitle">{{.Topic}}<span class="difficulty {{.DifficultyClass}}">{{.Difficulty}}</span></div>
    <div class="code-block">{{.Hint}}</div>
  </div>
</body>
</html>
`))

type fallbackData struct {
	Title           string
	Topic           string
	Difficulty      string
	DifficultyClass string
	Hint            string
	Width, Height   int
}

// FallbackHTML is the built-in design used when the provider cannot supply one
func FallbackHTML(script *types.Script, width, height int) (string, error) {
	meta := script.Metadata
	difficulty := strings.TrimSpace(meta.Difficulty)
	if difficulty == "" {
		difficulty = "Medium"
	}
	class := strings.ToLower(difficulty)
	if class != "easy" && class != "hard" {
		class = "medium"
	}
	hint := "// step by step walkthrough"
	if len(script.Scenes) > 0 && script.Scenes[0].Title != "" {
		hint = "// " + script.Scenes[0].Title
	}
	data := fallbackData{
		Title:           meta.Title,
		Topic:           meta.Topic,
		Difficulty:      difficulty,
		DifficultyClass: class,
		Hint:            hint,
		Width:           width,
		Height:          height,
	}
	var buf bytes.Buffer
	if err := fallbackDoc.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
