package config

// DefaultFlags returns a fresh copy of the feature-flag table. Values here
// can be overwritten per deployment: the built-in overlay is merged on top
// at load time, and the override document's feature_flags key merges last.
func DefaultFlags() map[string]bool {
	return map[string]bool{
		"ALLOW_DASHBOARD_DOMAIN_SHARDING": true,
		// Experimental browser-side cache for chart payloads.
		"CLIENT_CACHE":                     false,
		"DISABLE_DATASET_SOURCE_EDIT":      false,
		"DYNAMIC_PLUGINS":                  false,
		"DISABLE_LEGACY_DATASOURCE_EDITOR": true,
		"ENABLE_TEMPLATE_PROCESSING":       false,
		"ENABLE_TEMPLATE_REMOVE_FILTERS":   false,
		// Allows operators to attach custom javascript to chart controls.
		// Off by default: it is an XSS surface.
		"ENABLE_JAVASCRIPT_CONTROLS":      false,
		"KV_STORE":                        false,
		"THUMBNAILS":                      false,
		"DASHBOARD_CACHE":                 false,
		"REMOVE_SLICE_LEVEL_LABEL_COLORS": false,
		"SHARE_QUERIES_VIA_KV_STORE":      false,
		"TAGGING_SYSTEM":                  false,
		"QUERYLAB_BACKEND_PERSISTENCE":    true,
		"LISTVIEWS_DEFAULT_CARD_VIEW":     false,
		"DISPLAY_MARKDOWN_HTML":           true,
		"ESCAPE_MARKDOWN_HTML":            false,
		"DASHBOARD_NATIVE_FILTERS":        true,
		"DASHBOARD_CROSS_FILTERS":         false,
		"DASHBOARD_NATIVE_FILTERS_SET":    false,
		"DASHBOARD_FILTERS_EXPERIMENTAL":  false,
		"DASHBOARD_VIRTUALIZATION":        false,
		"GLOBAL_ASYNC_QUERIES":            false,
		"VERSIONED_EXPORT":                true,
		"EMBEDDED_PANORAMA":               true,
		"ALERT_REPORTS":                   false,
		"DASHBOARD_RBAC":                  false,
		"ENABLE_EXPLORE_DRAG_AND_DROP":    true,
		"ENABLE_ADVANCED_DATA_TYPES":      false,
		// When off, alert runs send link-only notifications without a
		// rendered screenshot attachment.
		"ALERTS_ATTACH_REPORTS":    true,
		"ENFORCE_DB_ENCRYPTION_UI": false,
		// Full CSV export of table visualizations can exhaust server
		// memory on large result sets.
		"ALLOW_FULL_CSV_EXPORT":           false,
		"GENERIC_CHART_AXES":              false,
		"ALLOW_ADHOC_SUBQUERY":            false,
		"USE_ANALOGOUS_COLORS":            false,
		"DASHBOARD_EDIT_CHART_IN_NEW_TAB": false,
		// Apply row-level security rules to Query Lab queries. Requires
		// rewriting the user's SQL; use with care.
		"RLS_IN_QUERYLAB":             false,
		"CACHE_IMPERSONATION":         false,
		"EMBEDDABLE_CHARTS":           true,
		"DRILL_TO_DETAIL":             false,
		"DATAPANEL_CLOSED_BY_DEFAULT": false,
		"HORIZONTAL_FILTER_BAR":       false,
		"ESTIMATE_QUERY_COST":         false,
		"SSH_TUNNELING":               false,
	}
}

// BuiltinFlagOverlay is the partial flag set this deployment ships with.
// Only the keys named here change; everything else keeps its default.
func BuiltinFlagOverlay() map[string]bool {
	return map[string]bool{
		"ALERT_REPORTS": true,
	}
}

// MergeFlags copies every entry of overlay into flags, replacing existing
// entries of the same name and adding new ones.
func MergeFlags(flags, overlay map[string]bool) {
	for name, enabled := range overlay {
		flags[name] = enabled
	}
}
