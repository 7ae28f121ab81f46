package dispatch

import (
	"maps"

	"mdqengine/internal/document"
	"mdqengine/internal/executor"
)

// Variables builds the binding map for one check: its selector values plus
// the document, system metadata, caller params and scratch directory.
func Variables(doc document.Context, selectors map[string]any, params map[string]any, tempDir string) map[string]any {
	vars := make(map[string]any, len(selectors)+8)
	maps.Copy(vars, selectors)
	vars[executor.VarDocument] = doc.Text()

	if sm := doc.SystemMetadata(); sm != nil {
		vars[executor.VarSystemMetadata] = sm.Map()
		vars[executor.VarDatasource] = sm.Datasource
		vars[executor.VarDateUploaded] = sm.DateUploaded
		vars[executor.VarAuthoritativeMemberNode] = sm.AuthoritativeMemberNode
		vars[executor.VarSystemMetadataPID] = sm.Identifier
	}
	if len(params) > 0 {
		vars[executor.VarParams] = maps.Clone(params)
	}
	if tempDir != "" {
		vars[executor.VarTempDir] = tempDir
	}
	return vars
}
