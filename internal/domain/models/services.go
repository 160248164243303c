package models

// Services enumerates the labels a customer line can carry, in menu order.
var Services = []string{"Haircut", "Shave", "Hair Color", "Styling", "Beard Trim", "Hot Towel", "Other"}

// DefaultService is preselected on every new line item.
const DefaultService = "Haircut"

// KnownService reports whether label is on the service menu.
func KnownService(label string) bool {
	for _, s := range Services {
		if s == label {
			return true
		}
	}
	return false
}
