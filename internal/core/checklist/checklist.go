// Package checklist maps a work item classification to its checklist template.
package checklist

import "github.com/calciferhq/calcifer/internal/core/workitem"

type key struct {
	category workitem.Category
	action   workitem.ActionType
}

// defaultTemplate is the fallback for unrecognized classifications, so work
// item creation is never blocked by an unknown combination.
var defaultTemplate = []string{
	"Complete the work",
	"Document changes",
}

var templates = map[key][]string{
	{workitem.CategoryPlatformFeature, workitem.ActionNew}: {
		"Define feature requirements and scope",
		"Design database schema changes (if any)",
		"Implement backend logic",
		"Create/update UI templates",
		"Test feature thoroughly",
		"Document feature in work notes",
		"Update user-facing documentation",
	},
	{workitem.CategoryPlatformFeature, workitem.ActionChange}: {
		"Document current behavior",
		"Implement changes",
		"Test changes thoroughly",
		"Update related documentation",
		"Verify no regressions",
	},
	{workitem.CategoryPlatformFeature, workitem.ActionFix}: {
		"Reproduce the issue",
		"Identify root cause",
		"Implement fix",
		"Test fix thoroughly",
		"Verify issue is resolved",
		"Document fix for future reference",
	},
	{workitem.CategoryPlatformFeature, workitem.ActionDeprecate}: {
		"Document current usage and dependents",
		"Announce deprecation in the change log",
		"Remove or disable the feature",
		"Verify nothing depends on the removed behavior",
		"Update user-facing documentation",
	},
	{workitem.CategoryIntegration, workitem.ActionNew}: {
		"Research integration API/requirements",
		"Create integration module structure",
		"Implement core integration logic",
		"Add configuration options",
		"Test integration end-to-end",
		"Document integration setup",
		"Add to integrations documentation",
	},
	{workitem.CategoryIntegration, workitem.ActionChange}: {
		"Document current integration behavior",
		"Implement changes",
		"Test integration functionality",
		"Update integration documentation",
	},
	{workitem.CategoryIntegration, workitem.ActionFix}: {
		"Reproduce integration issue",
		"Identify root cause",
		"Implement fix",
		"Test integration thoroughly",
		"Document fix",
	},
	{workitem.CategoryIntegration, workitem.ActionDeprecate}: {
		"Document current integration consumers",
		"Disable the integration",
		"Remove integration configuration",
		"Update integrations documentation",
	},
	{workitem.CategoryService, workitem.ActionNew}: {
		"Define service purpose and requirements",
		"Check resource availability (RAM/CPU/disk)",
		"Create docker-compose.yml or config files",
		"Test service locally",
		"Deploy to target VM/host",
		"Configure monitoring/health checks",
		"Add to service catalog",
		"Document service configuration",
	},
	{workitem.CategoryService, workitem.ActionChange}: {
		"Document current service configuration",
		"Backup existing configuration",
		"Make configuration changes",
		"Test changes",
		"Update service catalog entry",
		"Update service documentation",
	},
	{workitem.CategoryService, workitem.ActionFix}: {
		"Identify service issue",
		"Check logs and diagnostics",
		"Implement fix",
		"Restart/redeploy service",
		"Verify service is healthy",
		"Document fix for future reference",
	},
	{workitem.CategoryService, workitem.ActionDeprecate}: {
		"Document service consumers and data",
		"Back up service data",
		"Stop and remove the service",
		"Remove monitoring/health checks",
		"Remove from service catalog",
		"Document decommissioning",
	},
	{workitem.CategoryDocumentation, workitem.ActionNew}: {
		"Define documentation scope and audience",
		"Create document structure/outline",
		"Write documentation content",
		"Add examples and code snippets",
		"Review for clarity and accuracy",
		"Add to docs/ directory",
	},
	{workitem.CategoryDocumentation, workitem.ActionChange}: {
		"Identify sections to update",
		"Make documentation changes",
		"Update examples if needed",
		"Review for accuracy",
	},
	{workitem.CategoryDocumentation, workitem.ActionDeprecate}: {
		"Identify documents to retire",
		"Remove or archive the documents",
		"Fix inbound links and references",
	},
}

// For returns the ordered checklist for a classification. Unknown
// combinations get the generic default; the result is never empty.
func For(category workitem.Category, action workitem.ActionType) []workitem.ChecklistItem {
	texts, ok := templates[key{category, action}]
	if !ok {
		texts = defaultTemplate
	}

	items := make([]workitem.ChecklistItem, len(texts))
	for i, t := range texts {
		items[i] = workitem.ChecklistItem{Text: t}
	}
	return items
}
