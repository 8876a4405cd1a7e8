package config

import (
	"maps"
	"slices"

	"barbershop/internal/model"
)

// ApplyShopChanges copies onto current only the shop fields that differ
// between prev and next, so edits made through the admin API to other fields
// survive a config reload. It returns the yaml names of the copied fields.
func ApplyShopChanges(prev, next ShopConfig, current *model.ShopSettings) []string {
	before, after := prev.ShopSettings(), next.ShopSettings()
	var changed []string

	if before.Name != after.Name {
		current.Name = after.Name
		changed = append(changed, "name")
	}
	if before.Address != after.Address {
		current.Address = after.Address
		changed = append(changed, "address")
	}
	if before.Phone != after.Phone {
		current.Phone = after.Phone
		changed = append(changed, "phone")
	}
	if before.Description != after.Description {
		current.Description = after.Description
		changed = append(changed, "description")
	}
	if before.Status != after.Status {
		current.Status = after.Status
		changed = append(changed, "status")
	}
	if before.SlotDurationMinutes != after.SlotDurationMinutes {
		current.SlotDurationMinutes = after.SlotDurationMinutes
		changed = append(changed, "slot_duration_minutes")
	}
	if !maps.Equal(before.WorkingHours, after.WorkingHours) {
		current.WorkingHours = after.WorkingHours
		changed = append(changed, "working_hours")
	}
	if !slices.Equal(before.Services, after.Services) {
		current.Services = after.Services
		changed = append(changed, "services")
	}

	return changed
}
