package core

import "strings"

// ChargeJob is the parsed form of a raw charge job string such as
// "(OC7190) BOILER OPERATION / STN-BLR (STATION BOILER) / BLR00000 (LABOUR COST) / L (LABOUR)".
// The four components map onto the task, station, machine and expense
// autocomplete fields of the task register form.
type ChargeJob struct {
	Task    string
	Station string
	Machine string
	Expense string
}

// Parts returns the components in form-fill order.
func (c ChargeJob) Parts() []string {
	return []string{c.Task, c.Station, c.Machine, c.Expense}
}

// Complete reports whether all four components are present.
func (c ChargeJob) Complete() bool {
	return c.Task != "" && c.Station != "" && c.Machine != "" && c.Expense != ""
}

// ParseChargeJob splits a raw charge job on " / " into its components.
// Missing trailing components are left empty.
func ParseChargeJob(raw string) ChargeJob {
	var cj ChargeJob
	parts := strings.Split(raw, " / ")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch i {
		case 0:
			cj.Task = p
		case 1:
			cj.Station = p
		case 2:
			cj.Machine = p
		case 3:
			cj.Expense = p
		}
	}
	return cj
}

// ChargeCode extracts the bare code from a component. Components come in two
// shapes: "(OC7190) BOILER OPERATION" and "STN-BLR (STATION BOILER)".
func ChargeCode(component string) string {
	component = strings.TrimSpace(component)
	if component == "" {
		return ""
	}
	if strings.HasPrefix(component, "(") {
		if end := strings.Index(component, ")"); end > 1 {
			return component[1:end]
		}
	}
	if idx := strings.Index(component, " ("); idx > 0 {
		return component[:idx]
	}
	return component
}
