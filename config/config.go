package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"irqsched/core"
)

// Manifest is the full declaration set decoded from one or more HCL files.
type Manifest struct {
	Tasks     []core.TaskDecl
	Resources []core.ResourceDecl
}

// hclManifestFile represents the top-level structure of a manifest file for
// decoding.
type hclManifestFile struct {
	Tasks     []*hclTask     `hcl:"task,block"`
	Resources []*hclResource `hcl:"resource,block"`
}

type hclTask struct {
	Name      string   `hcl:"name,label"`
	Priority  int      `hcl:"priority"`
	Capacity  int      `hcl:"capacity,optional"`
	Resources []string `hcl:"resources,optional"`
}

type hclResource struct {
	Name string `hcl:"name,label"`
}

// Load parses the manifest files at the given paths into one Manifest.
// Structural validity (priority ranges, name collisions, resource
// references) is the dispatch table's concern; Load only guarantees
// well-formed HCL.
func Load(ctx context.Context, paths ...string) (*Manifest, error) {
	logger := core.LoggerFromContext(ctx)

	manifest := &Manifest{}
	parser := hclparse.NewParser()
	for _, path := range paths {
		logger.Debug("loading manifest", "path", path)
		hclFile, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
		}
		if err := manifest.appendFile(hclFile.Body, path); err != nil {
			return nil, err
		}
	}

	if len(manifest.Tasks) == 0 {
		logger.Warn("manifest declares no tasks", "paths", paths)
	}
	return manifest, nil
}

// Parse decodes a single in-memory manifest, filename is used only for
// diagnostics.
func Parse(src []byte, filename string) (*Manifest, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filename, diags)
	}

	manifest := &Manifest{}
	if err := manifest.appendFile(hclFile.Body, filename); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (m *Manifest) appendFile(body hcl.Body, filename string) error {
	var parsed hclManifestFile
	diags := gohcl.DecodeBody(body, nil, &parsed)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode manifest %s: %w", filename, diags)
	}

	for _, t := range parsed.Tasks {
		m.Tasks = append(m.Tasks, core.TaskDecl{
			Name:      t.Name,
			Priority:  core.Priority(t.Priority),
			Capacity:  t.Capacity,
			Resources: t.Resources,
		})
	}
	for _, r := range parsed.Resources {
		m.Resources = append(m.Resources, core.ResourceDecl{Name: r.Name})
	}
	return nil
}

// Decls returns the declaration slices in the form core.Build consumes.
func (m *Manifest) Decls() ([]core.TaskDecl, []core.ResourceDecl) {
	return m.Tasks, m.Resources
}
