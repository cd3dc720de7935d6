package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/fgrep/testhelpers"
)

func TestDetectOutputDirectories(t *testing.T) {
	root := testhelpers.WriteTree(t, map[string]string{
		"package.json":   `{"scripts": {"build": "tsc --outDir dist", "bundle": "esbuild --outDir=out"}, "build": {"outDir": "dist"}}`,
		"tsconfig.json":  `{"compilerOptions": {"outDir": "./lib/"}}`,
		"Cargo.toml":     "[package]\nname = \"x\"\n\n[build]\ntarget-dir = \"rust-out\"\n",
		"pyproject.toml": "[tool.setuptools]\nbuild-dir = \"pybuild\"\n",
	})

	got := NewBuildArtifactDetector(root).DetectOutputDirectories()
	assert.ElementsMatch(t, []string{
		"**/dist/**", "**/out/**", "**/lib/**", "**/target/**", "**/rust-out/**", "**/pybuild/**",
	}, got)
}

func TestDetectOutputDirectories_IgnoresEscapes(t *testing.T) {
	root := testhelpers.WriteTree(t, map[string]string{
		"tsconfig.json": `{"compilerOptions": {"outDir": "../elsewhere"}}`,
	})
	assert.Empty(t, NewBuildArtifactDetector(root).DetectOutputDirectories())
}

func TestDetectOutputDirectories_BrokenManifests(t *testing.T) {
	root := testhelpers.WriteTree(t, map[string]string{
		"package.json": "{not json",
		"Cargo.toml":   "[[[",
	})
	assert.Empty(t, NewBuildArtifactDetector(root).DetectOutputDirectories())
}

func TestDeduplicatePatterns(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, DeduplicatePatterns([]string{"a", "b", "a"}))
}
