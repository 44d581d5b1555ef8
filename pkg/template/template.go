// Package template provides prompt interpolation for generation requests.
// Prompts may reference the node's own fields ({{.prompt}}, {{.title}}),
// its parameters ({{.params.style}}), and its ordered upstream inputs
// ({{.input.text}}, {{(index .inputs 1).image}}).
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/atelierhq/atelier/pkg/models"
)

// NeedsTemplating reports whether the string contains template actions.
// Plain prompts skip the parse/execute round-trip entirely.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// Data assembles the template payload for a node: its own prompt, title and
// parameters plus the ordered upstream inputs. The first input is also
// exposed as .input for the common single-upstream case.
func Data(node *models.Node, inputs []*models.Node) map[string]any {
	rendered := make([]map[string]any, 0, len(inputs))
	for _, input := range inputs {
		rendered = append(rendered, inputData(input))
	}

	params := node.Data.Params
	if params == nil {
		params = map[string]any{}
	}

	data := map[string]any{
		"prompt": node.Data.Prompt,
		"title":  node.Title,
		"params": params,
		"inputs": rendered,
		"env":    getEnvVars(),
	}

	if len(rendered) > 0 {
		data["input"] = rendered[0]
	}

	return data
}

// RenderPrompt interpolates a prompt template and returns the trimmed
// result as a string.
func RenderPrompt(templateStr string, data map[string]any) (string, error) {
	result, err := execute(templateStr, data)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(result), nil
}

// RenderValue interpolates a parameter value template. Results that parse
// as JSON, numbers or booleans are returned typed; everything else comes
// back as a string.
func RenderValue(templateStr string, data map[string]any) (any, error) {
	rendered, err := execute(templateStr, data)
	if err != nil {
		return nil, err
	}

	result := strings.TrimSpace(rendered)

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err != nil {
			return nil, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
		}

		return jsonResult, nil
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

func execute(templateStr string, data map[string]any) (string, error) {
	tmpl, err := template.
		New("prompt").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}

				num := make([]byte, 1)

				_, err := rand.Read(num)
				if err != nil {
					return 0
				}

				return int(num[0]) % max
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

func inputData(node *models.Node) map[string]any {
	text := node.Data.Text
	if text == "" {
		text = node.Data.Prompt
	}

	return map[string]any{
		"id":    node.ID,
		"title": node.Title,
		"text":  text,
		"image": node.Data.Image,
		"video": node.Data.Video,
		"audio": node.Data.Audio,
	}
}

// getEnvVars returns environment variables as a map.
func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
