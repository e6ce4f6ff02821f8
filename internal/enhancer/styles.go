package enhancer

// ResolveStyles computes the style ids to apply to one field instance.
//
// By default every style granted to the consumer is exposed. A refined field
// with a non-empty selection keeps only the enabled selected ids that are also
// granted, in selection order.
func ResolveStyles(cfg FieldConfiguration) []string {
	granted := dedupe(cfg.ConsumerImageStyleIDs)
	if !cfg.Styles.Refine || len(cfg.Styles.CustomSelection) == 0 {
		return granted
	}
	allowed := make(map[string]struct{}, len(granted))
	for _, id := range granted {
		allowed[id] = struct{}{}
	}
	out := make([]string, 0, len(granted))
	seen := make(map[string]struct{}, len(granted))
	for _, id := range cfg.Styles.CustomSelection.Enabled() {
		if _, ok := allowed[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
