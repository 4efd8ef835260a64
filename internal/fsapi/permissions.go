package fsapi

import (
	"context"
	"fmt"
	"strings"
)

type Module string

const (
	ModuleComposer    Module = "composer"
	ModuleForms       Module = "forms"
	ModuleLocations   Module = "locations"
	ModulePosts       Module = "posts"
	ModuleMessages    Module = "messages"
	ModulePagePops    Module = "page-pops"
	ModuleWorkflows   Module = "workflows"
	ModuleSocialMedia Module = "social-media"
	ModuleCrisis      Module = "crisis"
)

// Modules is the order CheckAllPermissions walks.
var Modules = []Module{
	ModuleComposer,
	ModuleForms,
	ModuleLocations,
	ModulePosts,
	ModuleMessages,
	ModulePagePops,
	ModuleWorkflows,
	ModuleSocialMedia,
	ModuleCrisis,
}

var permissionPaths = map[Module]string{
	ModuleComposer:    "/fs/composer/permissions",
	ModuleForms:       "/fs/form-manager/permissions",
	ModuleLocations:   "/fs/location-manager/permissions",
	ModulePosts:       "/fs/post-manager/permissions",
	ModuleMessages:    "/fs/comms-manager/permissions",
	ModulePagePops:    "/fs/page-pops-permissions",
	ModuleWorkflows:   "/fs/workflow-manager/permissions",
	ModuleSocialMedia: "/fs/social-media-manager/permissions",
	ModuleCrisis:      "/fs/crisis-manager/permissions",
}

func (m Module) Path() string {
	return permissionPaths[m]
}

func ParseModule(raw string) (Module, error) {
	m := Module(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := permissionPaths[m]; !ok {
		return "", fmt.Errorf("unknown module %q", raw)
	}
	return m, nil
}

func (c *Client) Permissions(ctx context.Context, m Module) (*Response, error) {
	path := m.Path()
	if path == "" {
		return nil, fmt.Errorf("unknown module %q", m)
	}
	return c.Do(ctx, Request{Path: path})
}

type PermissionResult struct {
	Module   Module
	Response *Response
	Err      error
}

// CheckAllPermissions queries every module one after another and logs each outcome.
// Once ctx is done the remaining modules carry ctx.Err() and are not requested.
func (c *Client) CheckAllPermissions(ctx context.Context) []PermissionResult {
	results := make([]PermissionResult, 0, len(Modules))
	for _, m := range Modules {
		if ctx.Err() != nil {
			results = append(results, PermissionResult{Module: m, Err: ctx.Err()})
			continue
		}
		resp, err := c.Permissions(ctx, m)
		results = append(results, PermissionResult{Module: m, Response: resp, Err: err})
		if err != nil {
			continue
		}
		c.log.Info("permissions", "module", m, "kind", resp.Kind, "body", string(resp.JSON))
	}
	return results
}
