package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"intrinseco/pkg/core/logging"
)

// LoadFromDirectory registers every .json prompt found under dir, replacing
// built-ins that share an ID. Expected structure:
//
//	dir/
//	  extract/
//	    cleaner.json     -> "extract.cleaner"
//	    submitter.json   -> "extract.submitter"
func (r *Registry) LoadFromDirectory(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("prompts directory: %w", err)
	}

	loaded := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var pt Template
		if err := json.Unmarshal(data, &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		if pt.ID == "" {
			pt.ID = generateIDFromPath(path, dir)
		}
		if pt.Category == "" {
			pt.Category = detectCategory(path, dir)
		}
		if pt.UserPromptTmpl != "" {
			if _, err := template.New(pt.ID).Parse(pt.UserPromptTmpl); err != nil {
				return fmt.Errorf("invalid template in %s: %w", path, err)
			}
		}

		if err := r.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", pt.ID, err)
		}
		loaded++
		return nil
	})
	if err != nil {
		return err
	}

	logging.Named("prompt").Info("loaded prompts",
		zap.String("dir", dir),
		zap.Int("loaded", loaded),
		zap.Int("total", r.Count()))
	return nil
}

// generateIDFromPath turns "extract/cleaner.json" into "extract.cleaner".
func generateIDFromPath(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	relPath = strings.TrimSuffix(relPath, ".json")
	return strings.ReplaceAll(relPath, string(filepath.Separator), ".")
}

// detectCategory returns the first folder below baseDir.
func detectCategory(path string, baseDir string) string {
	relPath, _ := filepath.Rel(baseDir, path)
	parts := strings.Split(relPath, string(filepath.Separator))
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}

// RenderUserPrompt executes the user prompt template with ctx.
func RenderUserPrompt(pt *Template, ctx *Context) (string, error) {
	if pt.UserPromptTmpl == "" {
		return "", nil
	}

	tmpl, err := template.New(pt.ID).Option("missingkey=error").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var vars map[string]interface{}
	if ctx != nil {
		vars = ctx.Variables
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
