package rates

// Kind names an option category for display-label lookups.
type Kind string

const (
	KindModel       Kind = "model"
	KindTank        Kind = "tank"
	KindCity        Kind = "city"
	KindSensor      Kind = "sensor"
	KindFilter      Kind = "filter"
	KindPump        Kind = "pump"
	KindConnection  Kind = "connection"
	KindTrench      Kind = "trench"
	KindAboveGround Kind = "aboveGround"
	KindPanel       Kind = "panel"
	KindWarranty    Kind = "warranty"
)

var labels = map[Kind]map[string]string{
	KindModel: {
		"s":        "Hydropack S",
		"standard": "Hydropack",
		"x":        "Hydropack X",
	},
	KindTank: {
		"500":  "500 gallon",
		"1550": "1550 gallon",
		"3000": "3000 gallon",
		"5000": "5000 gallon",
	},
	KindSensor: {
		"normal": "Normal",
	},
	KindFilter: {
		"s":        "Hydropack S",
		"standard": "Hydropack",
		"x":        "Hydropack X",
	},
	KindPump: {
		"dab":  "DAB",
		"mini": "DAB Mini",
	},
	KindConnection: {
		"2way-t-valve": "Manual 2-way T-valve",
		"3way-t-valve": "Automatic 3-way T-valve",
	},
	KindTrench: {
		"trench_elec":  "Trenching - Electrical",
		"trench_plumb": "Trenching - Plumbing",
		"trench_comb":  "Trenching - Combined",
	},
	KindAboveGround: {
		"ab_elec":  "Above Ground - Electrical",
		"ab_plumb": "Above Ground - Plumbing",
		"ab_comb":  "Above Ground - Combined",
	},
	KindPanel: {
		"panel":    "Panel Upgrade",
		"subpanel": "Subpanel Upgrade",
	},
	KindWarranty: {
		"standard":  "Standard Warranty",
		"warranty5": "5-Year Extended Warranty",
		"warranty8": "8-Year Extended Warranty",
	},
}

// Label returns the human-readable name of option id. An empty id is "None";
// ids without a mapping (cities, partner-specific options) are returned as-is.
func Label(kind Kind, id string) string {
	if id == "" {
		return "None"
	}
	if l, ok := labels[kind][id]; ok {
		return l
	}
	return id
}
