package booking

// Slot names a single draft field. Used for targeted prompts and corrections.
type Slot string

const (
	SlotName    Slot = "name"
	SlotPhone   Slot = "phone"
	SlotVehicle Slot = "vehicle"
	SlotService Slot = "service_type"
	SlotDate    Slot = "preferred_date"
	SlotTime    Slot = "preferred_time"
)

// slotOrder fixes the order in which missing fields are asked for.
var slotOrder = []Slot{SlotPhone, SlotName, SlotVehicle, SlotService, SlotDate, SlotTime}

// Draft accumulates booking fields across turns. Every field is optional
// until filled; a filled field is never silently overwritten.
type Draft struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"` // normalized ten-digit key
	Vehicle string `json:"vehicle,omitempty"`
	Service string `json:"service_type,omitempty"`
	Date    string `json:"preferred_date,omitempty"`
	Time    string `json:"preferred_time,omitempty"`

	// VehicleSuggested marks a vehicle pre-filled from customer history.
	// It is a suggestion pending user confirmation, not an authoritative value.
	VehicleSuggested bool `json:"vehicle_suggested,omitempty"`
}

// Get returns the current value of a slot.
func (d Draft) Get(slot Slot) string {
	switch slot {
	case SlotName:
		return d.Name
	case SlotPhone:
		return d.Phone
	case SlotVehicle:
		return d.Vehicle
	case SlotService:
		return d.Service
	case SlotDate:
		return d.Date
	case SlotTime:
		return d.Time
	}
	return ""
}

// Set assigns a slot value. Setting the vehicle directly clears the
// suggestion flag: an explicit statement outranks history.
func (d *Draft) Set(slot Slot, value string) {
	switch slot {
	case SlotName:
		d.Name = value
	case SlotPhone:
		d.Phone = value
	case SlotVehicle:
		d.Vehicle = value
		d.VehicleSuggested = false
	case SlotService:
		d.Service = value
	case SlotDate:
		d.Date = value
	case SlotTime:
		d.Time = value
	}
}

// Clear empties a single slot.
func (d *Draft) Clear(slot Slot) {
	d.Set(slot, "")
	if slot == SlotVehicle {
		d.VehicleSuggested = false
	}
}

// Complete reports whether all six fields are filled. Completeness gates the
// confirmation step and the advisor notification.
func (d Draft) Complete() bool {
	return len(d.Missing()) == 0
}

// Missing returns the unfilled slots in ask order.
func (d Draft) Missing() []Slot {
	var missing []Slot
	for _, slot := range slotOrder {
		if d.Get(slot) == "" {
			missing = append(missing, slot)
		}
	}
	return missing
}
