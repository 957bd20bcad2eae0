package domain

// deliveryTimeSlots maps the time-of-day keys accepted at checkout to the
// label ranges shown to the customer. Display only; lifecycle rules never
// consult this table.
var deliveryTimeSlots = map[string]string{
	"08:00": "午前中 (8-12時)",
	"14:00": "14-16時",
	"16:00": "16-18時",
	"18:00": "18-21時",
}

// TimeSlotLabel resolves a requested-delivery time-slot key to its display
// range. The second return is false for keys outside the fixed table; callers
// fall back to showing the raw key.
func TimeSlotLabel(key string) (string, bool) {
	label, ok := deliveryTimeSlots[key]
	return label, ok
}
