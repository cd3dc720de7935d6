package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BuildArtifactDetector reads project manifests under a search root and
// reports the build output directories they declare, so that searches can
// skip generated code.
type BuildArtifactDetector struct {
	root string
}

// NewBuildArtifactDetector creates a detector for root.
func NewBuildArtifactDetector(root string) *BuildArtifactDetector {
	return &BuildArtifactDetector{root: root}
}

// DetectOutputDirectories returns exclusion globs such as "**/dist/**".
func (d *BuildArtifactDetector) DetectOutputDirectories() []string {
	var dirs []string
	dirs = append(dirs, d.packageJSON()...)
	dirs = append(dirs, d.tsconfig()...)
	dirs = append(dirs, d.cargo()...)
	dirs = append(dirs, d.pyproject()...)

	patterns := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		dir = strings.Trim(filepath.ToSlash(strings.TrimSpace(dir)), "/")
		dir = strings.TrimPrefix(dir, "./")
		if dir == "" || dir == "." || strings.HasPrefix(dir, "..") {
			continue
		}
		patterns = append(patterns, "**/"+dir+"/**")
	}
	return DeduplicatePatterns(patterns)
}

func (d *BuildArtifactDetector) read(name string) []byte {
	data, err := os.ReadFile(filepath.Join(d.root, name))
	if err != nil {
		return nil
	}
	return data
}

// packageJSON looks for --outDir in scripts and a build.outDir entry.
func (d *BuildArtifactDetector) packageJSON() []string {
	data := d.read("package.json")
	if data == nil {
		return nil
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
		Build   struct {
			OutDir string `json:"outDir"`
		} `json:"build"`
	}
	if json.Unmarshal(data, &pkg) != nil {
		return nil
	}

	var out []string
	for _, script := range pkg.Scripts {
		fields := strings.Fields(script)
		for i, f := range fields {
			if (f == "--outDir" || f == "-outDir") && i+1 < len(fields) {
				out = append(out, strings.Trim(fields[i+1], `"'`))
			}
			if v, ok := strings.CutPrefix(f, "--outDir="); ok {
				out = append(out, strings.Trim(v, `"'`))
			}
		}
	}
	if pkg.Build.OutDir != "" {
		out = append(out, pkg.Build.OutDir)
	}
	return out
}

func (d *BuildArtifactDetector) tsconfig() []string {
	data := d.read("tsconfig.json")
	if data == nil {
		return nil
	}
	var ts struct {
		CompilerOptions struct {
			OutDir string `json:"outDir"`
		} `json:"compilerOptions"`
	}
	if json.Unmarshal(data, &ts) != nil || ts.CompilerOptions.OutDir == "" {
		return nil
	}
	return []string{ts.CompilerOptions.OutDir}
}

// cargo reports target/ plus any [build] target-dir override.
func (d *BuildArtifactDetector) cargo() []string {
	data := d.read("Cargo.toml")
	if data == nil {
		return nil
	}
	var manifest struct {
		Build struct {
			TargetDir string `toml:"target-dir"`
		} `toml:"build"`
		Profile map[string]struct {
			TargetDir string `toml:"target-dir"`
		} `toml:"profile"`
	}
	if toml.Unmarshal(data, &manifest) != nil {
		return nil
	}
	out := []string{"target"}
	if manifest.Build.TargetDir != "" {
		out = append(out, manifest.Build.TargetDir)
	}
	for _, p := range manifest.Profile {
		if p.TargetDir != "" {
			out = append(out, p.TargetDir)
		}
	}
	return out
}

func (d *BuildArtifactDetector) pyproject() []string {
	data := d.read("pyproject.toml")
	if data == nil {
		return nil
	}
	var project struct {
		Tool struct {
			Poetry struct {
				Build struct {
					TargetDir string `toml:"target-dir"`
				} `toml:"build"`
			} `toml:"poetry"`
			Setuptools struct {
				BuildDir string `toml:"build-dir"`
			} `toml:"setuptools"`
		} `toml:"tool"`
	}
	if toml.Unmarshal(data, &project) != nil {
		return nil
	}
	var out []string
	if dir := project.Tool.Poetry.Build.TargetDir; dir != "" {
		out = append(out, dir)
	}
	if dir := project.Tool.Setuptools.BuildDir; dir != "" {
		out = append(out, dir)
	}
	return out
}

// DeduplicatePatterns removes duplicates while keeping first-seen order.
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}
	return result
}
